package gatepass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/httpclient"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

const homePath = "/home/"

// APIClient is the part of httpclient.Client the service sends through.
type APIClient interface {
	Do(ctx context.Context, req *httpclient.Request) (*http.Response, error)
	DoJSON(ctx context.Context, req *httpclient.Request, out any) error
}

type Service struct {
	client APIClient
	logger *slog.Logger
}

func NewService(client APIClient, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{client: client, logger: lg}
}

func (s *Service) FetchDashboard(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.client.DoJSON(ctx, &httpclient.Request{Method: http.MethodGet, Path: homePath}, &snap)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) Create(ctx context.Context, form FormDTO) (GatePass, error) {
	if err := form.Validate(); err != nil {
		return GatePass{}, err
	}
	return s.mutate(ctx, http.MethodPost, form)
}

// Update resubmits a pending or rejected pass; the server resets it to pending.
func (s *Service) Update(ctx context.Context, id int64, form FormDTO) (GatePass, error) {
	if err := form.Validate(); err != nil {
		return GatePass{}, err
	}
	return s.mutate(ctx, http.MethodPut, updateRequest{GatePassID: id, FormDTO: form})
}

func (s *Service) Approve(ctx context.Context, id int64) (GatePass, error) {
	return s.mutate(ctx, http.MethodPost, decisionRequest{GatePassID: id, Action: ActionApprove})
}

// Reject refuses to send a blank reason.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (GatePass, error) {
	if err := ValidateReason(reason); err != nil {
		return GatePass{}, err
	}
	return s.mutate(ctx, http.MethodPost, decisionRequest{
		GatePassID:      id,
		Action:          ActionReject,
		RejectionReason: reason,
	})
}

// mutate sends a write and decodes the updated record when the server
// returns one. A body that is not a record is not an error.
func (s *Service) mutate(ctx context.Context, method string, body any) (GatePass, error) {
	resp, err := s.client.Do(ctx, &httpclient.Request{Method: method, Path: homePath, Body: body})
	if err != nil {
		return GatePass{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return GatePass{}, errors.NewNetworkError("failed to read response", err)
	}

	var gp GatePass
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &gp); err != nil {
			s.logger.Debug("mutation response is not a gate pass record", "error", err)
			return GatePass{}, nil
		}
	}
	return gp, nil
}

// DownloadPDF streams the PDF of an approved pass. The caller closes it.
func (s *Service) DownloadPDF(ctx context.Context, id int64) (io.ReadCloser, error) {
	resp, err := s.client.Do(ctx, &httpclient.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/home/gatepass/%d/pdf/", id),
		Accept: "application/pdf",
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func PDFFileName(id int64) string {
	return fmt.Sprintf("gatepass_%d.pdf", id)
}

// SavePDF writes the PDF into dir and returns the file path. A partial file
// is removed on failure.
func (s *Service) SavePDF(ctx context.Context, id int64, dir string) (string, error) {
	body, err := s.DownloadPDF(ctx, id)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewInternalError("failed to create download directory", err)
	}

	path := filepath.Join(dir, PDFFileName(id))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.NewInternalError("failed to create pdf file", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.NewNetworkError("download interrupted", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.NewInternalError("failed to write pdf file", err)
	}

	s.logger.Debug("gate pass pdf saved", "gatepass_id", id, "path", path)
	return path, nil
}
