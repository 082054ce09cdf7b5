package auth

import "github.com/frahmantamala/gatepass/internal/core/common/validation"

type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshDTO struct {
	Refresh string `json:"refresh"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}
