package whisperx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyglot/internal/logging"
	"polyglot/internal/services"
)

// HuggingFaceWhoAmIEndpoint answers 200 for a usable token and 401/403 otherwise.
const HuggingFaceWhoAmIEndpoint = "https://huggingface.co/api/whoami-v2"

var (
	tokenHTTPClient = &http.Client{Timeout: 10 * time.Second}
	// ErrTokenUnauthorized reports that Hugging Face rejected the configured token.
	ErrTokenUnauthorized = errors.New("hugging face token unauthorized")
)

// TokenValidator checks that token can download the pyannote models.
type TokenValidator func(ctx context.Context, token string) error

// WithTokenValidator replaces the Hugging Face token check (for testing).
func (s *Service) WithTokenValidator(validator TokenValidator) {
	s.tokenCheck = validator
}

// VADMethod reports the VAD method the next run will use.
func (s *Service) VADMethod() string {
	return s.cfg.VADMethod
}

// ensureVAD validates the pyannote token once per service. A rejected or
// unreachable token downgrades the service to silero.
func (s *Service) ensureVAD(ctx context.Context) {
	if s.cfg.VADMethod != VADMethodPyannote {
		return
	}
	s.tokenOnce.Do(func() {
		check := s.tokenCheck
		if check == nil {
			check = whoAmIValidator(HuggingFaceWhoAmIEndpoint)
		}
		if err := check(ctx, s.cfg.HFToken); err != nil {
			s.SetVADMethod(VADMethodSilero)
			logging.WarnWithContext(s.logger, "pyannote authentication failed; falling back to silero", "pyannote_auth_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify model.hf_token or set model.vad_method = \"silero\""),
				logging.String(logging.FieldImpact, "voice activity detection uses silero"),
			)
			return
		}
		s.logger.Debug("pyannote authentication verified")
	})
}

func whoAmIValidator(endpoint string) TokenValidator {
	return func(ctx context.Context, token string) error {
		if strings.TrimSpace(token) == "" {
			return services.Wrap(services.ErrConfiguration, BackendName, "pyannote auth", "empty Hugging Face token", nil)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return services.Wrap(services.ErrTransient, BackendName, "pyannote auth", "build validation request", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := tokenHTTPClient.Do(req)
		if err != nil {
			return services.Wrap(services.ErrTransient, BackendName, "pyannote auth", "contact Hugging Face", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			return nil
		case http.StatusUnauthorized, http.StatusForbidden:
			base := services.Wrap(services.ErrValidation, BackendName, "pyannote auth",
				fmt.Sprintf("Hugging Face rejected token (%s)", resp.Status), nil)
			return fmt.Errorf("%w: %w", ErrTokenUnauthorized, base)
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			msg := strings.TrimSpace(string(body))
			if msg == "" {
				msg = resp.Status
			}
			return services.Wrap(services.ErrTransient, BackendName, "pyannote auth",
				fmt.Sprintf("unexpected Hugging Face response: %s", msg), nil)
		}
	}
}
