package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIngestVersionCreated(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"document_id":"doc-1","category":"DEED","raw_text":"deed text","extraction_confidence":0.9}`
	w := httptest.NewRecorder()
	f.api.IngestVersion(w, httptest.NewRequest(http.MethodPost, "/v1/versions", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeBody(t, w)
	if response["document_id"] != "doc-1" || response["sequence_number"] != float64(1) {
		t.Fatalf("unexpected response: %v", response)
	}
}

func TestIngestVersionValidationFailure(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"document_id":"doc-1","category":"NOT_A_CATEGORY","raw_text":"x"}`
	w := httptest.NewRecorder()
	f.api.IngestVersion(w, httptest.NewRequest(http.MethodPost, "/v1/versions", strings.NewReader(body)))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestVersionDetailAndNotFound(t *testing.T) {
	f := newAPIFixture(t)
	version := f.createVersion(t)

	w := httptest.NewRecorder()
	f.api.Versions(w, httptest.NewRequest(http.MethodGet, "/v1/versions/"+version.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decodeBody(t, w)["id"] != version.ID {
		t.Fatal("wrong version returned")
	}

	missing := httptest.NewRecorder()
	f.api.Versions(missing, httptest.NewRequest(http.MethodGet, "/v1/versions/"+uuid.NewString(), nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestVersionRelationshipsRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	first := f.createVersion(t)
	second := f.createVersion(t)

	link := httptest.NewRecorder()
	f.api.Versions(link, httptest.NewRequest(
		http.MethodPost,
		"/v1/versions/"+second.ID+"/relationships",
		strings.NewReader(`{"to_version_id":"`+first.ID+`","type":"amends"}`),
	))
	if link.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", link.Code, link.Body.String())
	}

	list := httptest.NewRecorder()
	f.api.Versions(list, httptest.NewRequest(http.MethodGet, "/v1/versions/"+first.ID+"/relationships", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	body := decodeBody(t, list)
	relationships := body["relationships"].([]any)
	if len(relationships) != 1 {
		t.Fatalf("expected one relationship, got %v", body)
	}
	edge := relationships[0].(map[string]any)
	if edge["type"] != "amends" || edge["from_version_id"] != second.ID {
		t.Fatalf("unexpected edge: %v", edge)
	}
}

func TestVersionSelfLinkRejected(t *testing.T) {
	f := newAPIFixture(t)
	version := f.createVersion(t)

	w := httptest.NewRecorder()
	f.api.Versions(w, httptest.NewRequest(
		http.MethodPost,
		"/v1/versions/"+version.ID+"/relationships",
		strings.NewReader(`{"to_version_id":"`+version.ID+`","type":"amends"}`),
	))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestDocumentVersionsListing(t *testing.T) {
	f := newAPIFixture(t)

	documentID := "doc-history"
	for i := 0; i < 2; i++ {
		body := `{"document_id":"` + documentID + `","category":"DEED","raw_text":"rev"}`
		w := httptest.NewRecorder()
		f.api.IngestVersion(w, httptest.NewRequest(http.MethodPost, "/v1/versions", strings.NewReader(body)))
		if w.Code != http.StatusCreated {
			t.Fatalf("ingest %d: got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	f.api.DocumentVersions(w, httptest.NewRequest(http.MethodGet, "/v1/documents/"+documentID+"/versions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	versions := body["versions"].([]any)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %v", body)
	}
	firstEntry := versions[0].(map[string]any)
	if firstEntry["sequence_number"] != float64(1) {
		t.Fatalf("versions should be in sequence order: %v", versions)
	}
}

func TestDocumentVersionsBadPath(t *testing.T) {
	f := newAPIFixture(t)
	w := httptest.NewRecorder()
	f.api.DocumentVersions(w, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/other", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
