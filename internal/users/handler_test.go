package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (http.Handler, *Service, string) {
	t.Helper()
	exportDir := t.TempDir()
	svc := newTestService(newMockRepository())
	handler := NewHandler(nil, svc, exportDir, nil)
	r := chi.NewRouter()
	r.Route("/users", handler.MountRoutes)
	return r, svc, exportDir
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreateEndpoint(t *testing.T) {
	router, _, _ := newTestAPI(t)

	rr := doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"first_name": "John",
		"last_name":  "Doe",
		"email":      "John.Doe@Example.com",
		"city":       "Paris",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "john.doe@example.com", created.Email)
	assert.NotEmpty(t, created.ID)

	// Same email, different case.
	rr = doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"first_name": "Johnny",
		"last_name":  "Doe",
		"email":      "JOHN.DOE@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestCreateEndpointRejectsBadBody(t *testing.T) {
	router, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/users", map[string]any{
		"first_name": "John",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListEndpointPagination(t *testing.T) {
	router, svc, _ := newTestAPI(t)
	seedUsers(t, svc, 15)

	rr := doJSON(t, router, http.MethodGet, "/users?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ListUsersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, 15, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestListEndpointInvalidParamsFallBack(t *testing.T) {
	router, svc, _ := newTestAPI(t)
	seedUsers(t, svc, 3)

	rr := doJSON(t, router, http.MethodGet, "/users?page=abc&limit=-5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ListUsersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	assert.Len(t, resp.Data, 3)
}

func TestGetEndpoint(t *testing.T) {
	router, svc, _ := newTestAPI(t)
	created := seedUsers(t, svc, 1)[0]

	rr := doJSON(t, router, http.MethodGet, "/users/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)

	rr = doJSON(t, router, http.MethodGet, "/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateEndpoint(t *testing.T) {
	router, svc, _ := newTestAPI(t)
	created := seedUsers(t, svc, 1)[0]

	rr := doJSON(t, router, http.MethodPut, "/users/"+created.ID, map[string]any{
		"city": "Lyon",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var updated User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "Lyon", stringValue(updated.City))
	assert.Equal(t, created.Email, updated.Email)

	rr = doJSON(t, router, http.MethodPut, "/users/"+uuid.NewString(), map[string]any{
		"city": "Lyon",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router, svc, _ := newTestAPI(t)
	created := seedUsers(t, svc, 1)[0]

	rr := doJSON(t, router, http.MethodDelete, "/users/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "User removed")

	rr = doJSON(t, router, http.MethodDelete, "/users/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func listExportArtifacts(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestExportEndpoint(t *testing.T) {
	router, svc, exportDir := newTestAPI(t)
	seedUsers(t, svc, 3)

	rr := doJSON(t, router, http.MethodGet, "/users/export", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="users.csv"`)

	lines := strings.Split(strings.TrimRight(rr.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4, "1 header + 3 rows")
	assert.Equal(t, "First Name,Last Name,Email,Phone,Address,City,State,Zip Code,Country", lines[0])

	// Transient artifact removed once the response completed.
	assert.Empty(t, listExportArtifacts(t, exportDir))
}

func TestExportEndpointFiltersAndEscapes(t *testing.T) {
	router, svc, exportDir := newTestAPI(t)
	_, err := svc.Create(context.Background(), CreateUserRequest{
		FirstName: "Comma, Inc",
		LastName:  "Smith",
		Email:     "comma@example.com",
	})
	require.NoError(t, err)
	seedUsers(t, svc, 2)

	rr := doJSON(t, router, http.MethodGet, "/users/export?search=comma", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	lines := strings.Split(strings.TrimRight(rr.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"Comma, Inc",Smith,comma@example.com`), lines[1])
	assert.Empty(t, listExportArtifacts(t, exportDir))
}

func TestExportEndpointEmptySet(t *testing.T) {
	router, _, exportDir := newTestAPI(t)

	rr := doJSON(t, router, http.MethodGet, "/users/export", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// No transient artifact is created for an empty export.
	assert.Empty(t, listExportArtifacts(t, exportDir))
}

// Artifact cleanup holds even when delivery dies mid-stream.
func TestExportCleanupOnDeliveryFailure(t *testing.T) {
	router, svc, exportDir := newTestAPI(t)
	seedUsers(t, svc, 5)

	req := httptest.NewRequest(http.MethodGet, "/users/export", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(&failingWriter{ResponseRecorder: rr}, req)

	assert.Empty(t, listExportArtifacts(t, exportDir))
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (w *failingWriter) Write(b []byte) (int, error) {
	return 0, assert.AnError
}
