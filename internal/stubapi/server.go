// Package stubapi is a development server that speaks the gate-pass REST
// contract. It backs the client's end-to-end tests and local runs.
package stubapi

import (
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/frahmantamala/gatepass/internal"
)

type Server struct {
	DB      *gorm.DB
	Service *Service
	Tokens  *TokenIssuer
	Handler http.Handler
}

// New builds the stub from config. The database is opened and migrated.
func New(cfg internal.StubConfig, logger *slog.Logger) (*Server, error) {
	db, err := Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, cfg, logger), nil
}

func NewWithDB(db *gorm.DB, cfg internal.StubConfig, logger *slog.Logger) *Server {
	tokens := NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	svc := NewService(NewRepository(db), tokens, logger)
	handler := NewHandler(svc, logger)

	return &Server{
		DB:      db,
		Service: svc,
		Tokens:  tokens,
		Handler: NewRouter(handler, db, logger),
	}
}

func (s *Server) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
