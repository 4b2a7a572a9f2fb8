package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/flockregistry/models"
)

func doJSON(t *testing.T, env *testEnv, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateAnimal(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodPost, "/api/records", map[string]interface{}{
		"earTag":    "CZ-1234",
		"birthDate": "2021-04-01",
		"breed":     "Suffolk",
		"category":  "ewe",
		"sex":       "female",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "CZ-1234", body["earTag"])
	assert.Equal(t, "EWE", body["category"])
	assert.NotEmpty(t, body["registeredAt"])
}

func TestCreateAnimalCoercesUnknownEnums(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodPost, "/api/records", map[string]interface{}{
		"earTag":    "CZ-1",
		"birthDate": "2021-04-01",
		"breed":     "Suffolk",
		"category":  "stallion",
		"sex":       "maybe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "OTHER", body["category"])
	assert.Equal(t, "UNKNOWN", body["sex"])
}

func TestCreateAnimalDuplicateEarTag(t *testing.T) {
	env := newTestEnv(t)
	env.createAnimal(t, "CZ-1")

	rec := doJSON(t, env, http.MethodPost, "/api/records", map[string]interface{}{
		"earTag":    "CZ-1",
		"birthDate": "2021-04-01",
		"breed":     "Suffolk",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateAnimalValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodPost, "/api/records", map[string]interface{}{
		"earTag":    "CZ-1",
		"birthDate": "2199-01-01",
		"breed":     "Suffolk",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok, "validation errors are reported per field")
	assert.Contains(t, details, "birthDate")
}

func TestCreateAnimalRejectsAmbiguousDate(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodPost, "/api/records", map[string]interface{}{
		"earTag":    "CZ-1",
		"birthDate": "01/04/2021",
		"breed":     "Suffolk",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAnimal(t *testing.T) {
	env := newTestEnv(t)
	animal := env.createAnimal(t, "CZ-2")

	rec := doJSON(t, env, http.MethodGet, "/api/records/"+animal.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "CZ-2", body["earTag"])

	rec = doJSON(t, env, http.MethodGet, "/api/records/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAnimalPartial(t *testing.T) {
	env := newTestEnv(t)
	animal := env.createAnimal(t, "CZ-3")

	rec := doJSON(t, env, http.MethodPut, "/api/records/"+animal.ID, map[string]interface{}{
		"note": "bought at the spring market",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "bought at the spring market", body["note"])
	assert.Equal(t, "CZ-3", body["earTag"], "unsupplied fields stay put")
	assert.Equal(t, "Suffolk", body["breed"])
}

func TestUpdateAnimalEarTagConflict(t *testing.T) {
	env := newTestEnv(t)
	env.createAnimal(t, "CZ-4")
	other := env.createAnimal(t, "CZ-5")

	rec := doJSON(t, env, http.MethodPut, "/api/records/"+other.ID, map[string]interface{}{
		"earTag": "CZ-4",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAnimal(t *testing.T) {
	env := newTestEnv(t)
	animal := env.createAnimal(t, "CZ-6")

	rec := doJSON(t, env, http.MethodDelete, "/api/records/"+animal.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env, http.MethodDelete, "/api/records/"+animal.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnimalsPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 25; i++ {
		env.createAnimal(t, fmt.Sprintf("CZ-%04d", i))
	}

	rec := doJSON(t, env, http.MethodGet, "/api/records?page=3&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 5)

	pagination, ok := body["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 25, pagination["total"])
	assert.EqualValues(t, 3, pagination["pageCount"])
	assert.EqualValues(t, 10, pagination["pageSize"])
}

func TestListAnimalsSearchFilter(t *testing.T) {
	env := newTestEnv(t)
	env.createAnimal(t, "CZ-ALPHA")
	env.createAnimal(t, "CZ-BETA")

	rec := doJSON(t, env, http.MethodGet, "/api/records?search=alpha", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	record := data[0].(map[string]interface{})
	assert.Equal(t, "CZ-ALPHA", record["earTag"])
}

func TestListAnimalsRejectsBadPage(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodGet, "/api/records?page=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsSummary(t *testing.T) {
	env := newTestEnv(t)
	env.createAnimal(t, "CZ-1")
	env.createAnimal(t, "CZ-2")
	birth, err := models.ParseDateOnly("2021-04-01")
	require.NoError(t, err)
	ram := &models.Animal{
		EarTag:    "CZ-3",
		BirthDate: birth,
		Breed:     "Merino",
		Category:  models.CategoryRam,
		Sex:       models.SexMale,
	}
	require.NoError(t, env.repo.Create(ram))

	rec := doJSON(t, env, http.MethodGet, "/api/records/stats/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["total"])

	byBreed, ok := body["byBreed"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, byBreed)
	top := byBreed[0].(map[string]interface{})
	assert.Equal(t, "Suffolk", top["breed"])
	assert.EqualValues(t, 2, top["count"])

	byCategory, ok := body["byCategory"].([]interface{})
	require.True(t, ok)
	found := false
	for _, row := range byCategory {
		entry := row.(map[string]interface{})
		if entry["category"] == "RAM" {
			found = true
			assert.EqualValues(t, 1, entry["count"])
		}
	}
	assert.True(t, found, "expected a RAM bucket in byCategory")
}

func TestErrorResponsesCarryTimestamp(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodGet, "/api/records/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	ts, ok := body["timestamp"].(string)
	require.True(t, ok)
	assert.True(t, strings.Contains(ts, "T"), "timestamp should be ISO-8601")
}
