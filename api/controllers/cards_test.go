package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/internal/cards"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/pagination"
)

type stubCardsService struct {
	createInput *cards.CreateCardInput
	created     *cards.CardDTO
	createErr   error

	listQuery  string
	listParams pagination.Params
	listResp   *cards.ListResponse

	getViewer *cards.Viewer
	getCard   *cards.CardDTO
	getErr    error

	deleteViewer *cards.Viewer
	deleteErr    error
}

func (s *stubCardsService) Create(_ context.Context, input cards.CreateCardInput) (*cards.CardDTO, error) {
	s.createInput = &input
	return s.created, s.createErr
}

func (s *stubCardsService) ListPublic(_ context.Context, query string, params pagination.Params) (*cards.ListResponse, error) {
	s.listQuery = query
	s.listParams = params
	return s.listResp, nil
}

func (s *stubCardsService) Get(_ context.Context, _ uuid.UUID, viewer *cards.Viewer) (*cards.CardDTO, error) {
	s.getViewer = viewer
	return s.getCard, s.getErr
}

func (s *stubCardsService) MapPins(context.Context) ([]cards.MapPinDTO, error) {
	return nil, nil
}

func (s *stubCardsService) ListByStatus(_ context.Context, _ enums.CardStatus, params pagination.Params) (*cards.ListResponse, error) {
	s.listParams = params
	return s.listResp, nil
}

func (s *stubCardsService) SetStatus(context.Context, uuid.UUID, enums.CardStatus) (*cards.CardDTO, error) {
	return s.getCard, s.getErr
}

func (s *stubCardsService) Update(context.Context, uuid.UUID, cards.UpdateCardInput) (*cards.CardDTO, error) {
	return s.getCard, s.getErr
}

func (s *stubCardsService) Delete(_ context.Context, _ uuid.UUID, viewer cards.Viewer) error {
	s.deleteViewer = &viewer
	return s.deleteErr
}

func testContentConfig() config.ContentConfig {
	return config.ContentConfig{Dir: "content", MaxUploadMB: 8, MaxPhotos: 6}
}

func buildCardForm(t *testing.T, fields map[string]string, photos []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for _, name := range photos {
		part, err := writer.CreateFormFile("photos", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("image-bytes")); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestCardsCreateParsesMultipart(t *testing.T) {
	dto := cards.CardDTO{ID: uuid.New(), ToName: "Sam", Status: enums.CardStatusPending}
	svc := &stubCardsService{created: &dto}
	handler := CardsCreate(svc, testContentConfig(), nil)

	body, contentType := buildCardForm(t, map[string]string{
		"to_name":  "Sam",
		"location": "Lisbon",
		"message":  "miss you",
		"lat":      "38.72",
		"lng":      "-9.14",
	}, []string{"beach.jpg", "sunset.png"})

	req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createInput == nil {
		t.Fatal("expected service to receive input")
	}
	if svc.createInput.ToName != "Sam" || svc.createInput.Location != "Lisbon" {
		t.Fatalf("unexpected fields: %+v", svc.createInput)
	}
	if svc.createInput.LatRaw != "38.72" || svc.createInput.LngRaw != "-9.14" {
		t.Fatalf("unexpected coordinates: %+v", svc.createInput)
	}
	if len(svc.createInput.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(svc.createInput.Photos))
	}
	if svc.createInput.OwnerID != nil {
		t.Fatal("anonymous submission must not carry an owner")
	}
}

func TestCardsCreateAttributesOwner(t *testing.T) {
	dto := cards.CardDTO{ID: uuid.New()}
	svc := &stubCardsService{created: &dto}
	handler := CardsCreate(svc, testContentConfig(), nil)

	body, contentType := buildCardForm(t, map[string]string{
		"to_name":  "Sam",
		"location": "Lisbon",
		"message":  "hi",
	}, nil)

	ownerID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/cards", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithIdentity(req.Context(), ownerID, "tester", false, "sess"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.createInput.OwnerID == nil || *svc.createInput.OwnerID != ownerID {
		t.Fatalf("expected owner %s, got %+v", ownerID, svc.createInput.OwnerID)
	}
}

func TestCardsListForwardsQueryAndLimit(t *testing.T) {
	svc := &stubCardsService{listResp: &cards.ListResponse{Cards: []cards.CardDTO{}}}
	handler := CardsList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cards?q=sam&limit=5&cursor=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.listQuery != "sam" {
		t.Fatalf("expected query sam, got %q", svc.listQuery)
	}
	if svc.listParams.Limit != 5 || svc.listParams.Cursor != "abc" {
		t.Fatalf("unexpected params: %+v", svc.listParams)
	}
}

func TestCardsListRejectsOversizedLimit(t *testing.T) {
	svc := &stubCardsService{listResp: &cards.ListResponse{}}
	handler := CardsList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cards?limit=5000", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCardsGetPassesViewer(t *testing.T) {
	cardID := uuid.New()
	svc := &stubCardsService{getCard: &cards.CardDTO{ID: cardID}}

	r := chi.NewRouter()
	r.Get("/api/cards/{cardId}", CardsGet(svc, nil))

	viewerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+cardID.String(), nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), viewerID, "tester", true, "sess"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.getViewer == nil || svc.getViewer.ID != viewerID || !svc.getViewer.IsAdmin {
		t.Fatalf("unexpected viewer: %+v", svc.getViewer)
	}
}

func TestCardsGetNotFoundMapsToEnvelope(t *testing.T) {
	svc := &stubCardsService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "card not found")}

	r := chi.NewRouter()
	r.Get("/api/cards/{cardId}", CardsGet(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Message != "card not found" {
		t.Fatalf("unexpected message: %s", payload.Error.Message)
	}
}

func TestCardsDeleteRequiresIdentity(t *testing.T) {
	svc := &stubCardsService{}

	r := chi.NewRouter()
	r.Delete("/api/cards/{cardId}", CardsDelete(svc, nil))

	req := httptest.NewRequest(http.MethodDelete, "/api/cards/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.deleteViewer != nil {
		t.Fatal("service must not be called without identity")
	}
}
