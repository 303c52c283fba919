package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/classify"
	"github.com/fsuels/auditledger/internal/audit/service"
	"github.com/fsuels/auditledger/internal/audit/signer"
	"github.com/fsuels/auditledger/internal/audit/store/memory"
	"github.com/fsuels/auditledger/internal/audit/verify"
	"github.com/fsuels/auditledger/internal/audit/writer"
	"github.com/fsuels/auditledger/internal/platform/secrets"
	"github.com/fsuels/auditledger/internal/platform/token"
)

type HandlerSuite struct {
	suite.Suite
	router *chi.Mux
	tokens *token.Service
	store  *memory.Store
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.store = memory.NewStore()

	sig := signer.New(secrets.NewHKDFSource([]byte("handler-test-secret"), ""))
	w := writer.New(s.store, writer.Config{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, logger, nil)
	pipeline := service.New(
		classify.NewPolicy(),
		sig,
		w,
		s.store,
		verify.New(sig),
		service.Identity{Service: "auditledger", Version: "test"},
		nil,
		logger,
	)

	s.tokens = token.NewService("handler-test-jwt-key", "auditledger")
	s.router = chi.NewRouter()
	New(pipeline, logger, s.tokens).Register(s.router)
}

func (s *HandlerSuite) bearer() string {
	tok, err := s.tokens.Generate("auditor-1", "auditor", time.Hour)
	s.Require().NoError(err)
	return "Bearer " + tok
}

func (s *HandlerSuite) postMutation(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/mutations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestMutationAccepted() {
	rec := s.postMutation(`{
		"collection": "documents",
		"entityId": "doc-1",
		"type": "update",
		"before": {"title": "v1"},
		"after": {"title": "v2"}
	}`)

	s.Require().Equal(http.StatusAccepted, rec.Code)

	var resp struct {
		State    string `json:"state"`
		Sequence uint64 `json:"sequence"`
		EventID  string `json:"eventId"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("persisted", resp.State)
	s.Equal(uint64(1), resp.Sequence)
	s.NotEmpty(resp.EventID)
}

func (s *HandlerSuite) TestMutationValidation() {
	s.Run("malformed json", func() {
		rec := s.postMutation(`{broken`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing required fields", func() {
		rec := s.postMutation(`{"collection": "documents"}`)
		s.Equal(http.StatusBadRequest, rec.Code)

		var resp struct {
			Error string `json:"error"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Contains(resp.Error, "required")
	})
}

func (s *HandlerSuite) TestReadSurfaceRequiresAuth() {
	paths := []string{
		"/v1/audit/history?owner=x",
		"/v1/audit/export?owner=x",
		"/v1/audit/deadletters",
	}
	for _, path := range paths {
		s.Run(path, func() {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			s.Equal(http.StatusUnauthorized, rec.Code)
		})
	}

	s.Run("verify", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/audit/verify", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("garbage token rejected", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/audit/history?owner=x", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlerSuite) TestHistory() {
	for i := 1; i <= 3; i++ {
		rec := s.postMutation(fmt.Sprintf(`{
			"collection": "documents",
			"entityId": "doc-1",
			"type": "update",
			"after": {"rev": %d},
			"actor": {"id": "user-1"}
		}`, i))
		s.Require().Equal(http.StatusAccepted, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/history?owner=user-1&limit=2", nil)
	req.Header.Set("Authorization", s.bearer())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Owner  string        `json:"owner"`
		Events []audit.Event `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("user-1", resp.Owner)
	s.Require().Len(resp.Events, 2)
	s.Equal(uint64(3), resp.Events[0].Sequence)
}

func (s *HandlerSuite) TestHistoryRequiresOwner() {
	req := httptest.NewRequest(http.MethodGet, "/v1/audit/history", nil)
	req.Header.Set("Authorization", s.bearer())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestVerifyFullChain() {
	s.postMutation(`{"collection": "documents", "entityId": "doc-1", "type": "create", "after": {"v": 1}}`)
	s.postMutation(`{"collection": "documents", "entityId": "doc-1", "type": "update", "after": {"v": 2}}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/audit/verify", nil)
	req.Header.Set("Authorization", s.bearer())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var result verify.Result
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.True(result.Valid)
	s.Equal(2, result.Checked)
}

func (s *HandlerSuite) TestVerifySuppliedEvents() {
	s.postMutation(`{"collection": "documents", "entityId": "doc-1", "type": "create", "after": {"v": 1}}`)
	events, err := s.store.ListAll(context.Background())
	s.Require().NoError(err)
	events[0].Change.After = map[string]any{"v": float64(99)}

	body, err := json.Marshal(map[string]any{"events": events})
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/v1/audit/verify", bytes.NewReader(body))
	req.Header.Set("Authorization", s.bearer())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var result verify.Result
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	s.False(result.Valid)
	s.Require().NotNil(result.FirstDivergence)
	s.Equal(uint64(1), *result.FirstDivergence)
}

func (s *HandlerSuite) TestExport() {
	s.postMutation(`{"collection": "documents", "entityId": "doc-1", "type": "create", "after": {"v": 1}, "actor": {"id": "user-1"}}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/export?owner=user-1", nil)
	req.Header.Set("Authorization", s.bearer())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Disposition"), "audit-history-user-1.json")

	var export service.Export
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &export))
	s.Equal("user-1", export.Owner)
	s.Equal(1, export.Count)
}

func (s *HandlerSuite) TestDeadLettersEndpoint() {
	req := httptest.NewRequest(http.MethodGet, "/v1/audit/deadletters", nil)
	req.Header.Set("Authorization", s.bearer())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Records []audit.DeadLetter `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Empty(resp.Records)
}
