package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlang/filterlang"
	"github.com/filterlang/filterlang/internal/store"
)

func testHandler(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(s, logger), s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createTestScheme(t *testing.T, h http.Handler) {
	t.Helper()
	w := doJSON(t, h, "POST", "/v1/schemes", createSchemeRequest{
		Name: "packets",
		Fields: []fieldSpec{
			{Name: "ip1", Type: "ip"},
			{Name: "ip2", Type: "ip"},
			{Name: "str1", Type: "bytes"},
			{Name: "str2", Type: "bytes"},
			{Name: "num1", Type: "unsigned"},
			{Name: "num2", Type: "unsigned"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func compileTestFilter(t *testing.T, h http.Handler, expression string) int64 {
	t.Helper()
	w := doJSON(t, h, "POST", "/v1/schemes/packets/filters", compileFilterRequest{Expression: expression})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp filterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func TestCreateScheme(t *testing.T) {
	h, s := testHandler(t)
	createTestScheme(t, h)

	rec, err := s.GetScheme(context.Background(), "packets")
	require.NoError(t, err)
	assert.Len(t, rec.Fields, 6)
}

func TestCreateSchemeBadRequests(t *testing.T) {
	h, _ := testHandler(t)

	tests := []struct {
		name string
		req  createSchemeRequest
	}{
		{"empty name", createSchemeRequest{Fields: []fieldSpec{{Name: "f", Type: "ip"}}}},
		{"bad name", createSchemeRequest{Name: "UPPER", Fields: []fieldSpec{{Name: "f", Type: "ip"}}}},
		{"no fields", createSchemeRequest{Name: "s"}},
		{"bad field name", createSchemeRequest{Name: "s", Fields: []fieldSpec{{Name: "1f", Type: "ip"}}}},
		{"reserved field name", createSchemeRequest{Name: "s", Fields: []fieldSpec{{Name: "not", Type: "ip"}}}},
		{"bool not declarable", createSchemeRequest{Name: "s", Fields: []fieldSpec{{Name: "f", Type: "bool"}}}},
		{"unknown type", createSchemeRequest{Name: "s", Fields: []fieldSpec{{Name: "f", Type: "float"}}}},
	}

	for _, tt := range tests {
		w := doJSON(t, h, "POST", "/v1/schemes", tt.req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s: %s", tt.name, w.Body.String())
	}
}

func TestCreateSchemeConflict(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)

	w := doJSON(t, h, "POST", "/v1/schemes", createSchemeRequest{
		Name:   "packets",
		Fields: []fieldSpec{{Name: "f", Type: "ip"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetScheme(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)

	w := doJSON(t, h, "GET", "/v1/schemes/packets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp schemeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "packets", resp.Name)
	assert.Contains(t, resp.Fields, fieldSpec{Name: "num1", Type: "unsigned"})

	w = doJSON(t, h, "GET", "/v1/schemes/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompileFilter(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)

	id := compileTestFilter(t, h, `num1 > 3 && str2 == "abc"`)
	assert.Equal(t, int64(1), id)

	w := doJSON(t, h, "GET", "/v1/filters/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp filterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `num1 > 3 && str2 == "abc"`, resp.Expression)
}

func TestCompileFilterDiagnostic(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)

	w := doJSON(t, h, "POST", "/v1/schemes/packets/filters",
		compileFilterRequest{Expression: `num1 == "abc"`})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t,
		"Filter parsing error:\n`num1 == \"abc\"`\n         ^^^^^ expected digit\n",
		resp["error"])
}

func TestCompileFilterUnknownScheme(t *testing.T) {
	h, _ := testHandler(t)

	w := doJSON(t, h, "POST", "/v1/schemes/nope/filters",
		compileFilterRequest{Expression: `num1 == 1`})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func testValues() map[string]valueSpec {
	return map[string]valueSpec{
		"ip1":  {Type: "ip", Value: json.RawMessage(`"127.0.0.1"`)},
		"ip2":  {Type: "ip", Value: json.RawMessage(`"192.168.0.1"`)},
		"str1": {Type: "bytes", Value: json.RawMessage(`"Hey"`)},
		"str2": {Type: "bytes", Value: json.RawMessage(`"yo123"`)},
		"num1": {Type: "unsigned", Value: json.RawMessage(`42`)},
		"num2": {Type: "unsigned", Value: json.RawMessage(`1337`)},
	}
}

func TestEvalFilter(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)

	tests := []struct {
		expression string
		want       bool
	}{
		{`num1 > 41 && num2 == 1337 && ip1 != 192.168.0.1 && str2 ~ "yo\d+"`, true},
		{`ip1 == 127.0.0.1 && ip2 == 127.0.0.2`, false},
	}

	for _, tt := range tests {
		id := compileTestFilter(t, h, tt.expression)

		w := doJSON(t, h, "POST", "/v1/filters/"+itoa(id)+"/eval", evalRequest{Values: testValues()})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp evalResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.want, resp.Match, tt.expression)
	}
}

func TestEvalFilterMissingField(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)
	id := compileTestFilter(t, h, `num1 == 42`)

	w := doJSON(t, h, "POST", "/v1/filters/"+itoa(id)+"/eval", evalRequest{})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.Contains(resp["error"], "num1"), resp["error"])
}

func TestEvalFilterBadValues(t *testing.T) {
	h, _ := testHandler(t)
	createTestScheme(t, h)
	id := compileTestFilter(t, h, `num1 == 42`)

	tests := []map[string]valueSpec{
		{"num1": {Type: "unsigned", Value: json.RawMessage(`"abc"`)}},
		{"ip1": {Type: "ip", Value: json.RawMessage(`"not-an-address"`)}},
		{"str1": {Type: "bytes", Value: json.RawMessage(`42`)}},
		{"num1": {Type: "float", Value: json.RawMessage(`1.5`)}},
	}

	for _, values := range tests {
		w := doJSON(t, h, "POST", "/v1/filters/"+itoa(id)+"/eval", evalRequest{Values: values})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
}

func TestEvalFilterNotFound(t *testing.T) {
	h, _ := testHandler(t)

	w := doJSON(t, h, "POST", "/v1/filters/99/eval", evalRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, "POST", "/v1/filters/abc/eval", evalRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsagePanicClassification(t *testing.T) {
	// Only the engine's missing-field and type-drift panics become 422s;
	// anything else is a bug and must propagate.
	usage := []string{
		"Could not find previously registered field num1",
		"Field num1 was previously registered with type Unsigned but now contains Bytes",
	}
	for _, msg := range usage {
		got, ok := usagePanic(msg)
		assert.True(t, ok, msg)
		assert.Equal(t, msg, got)
	}

	other := []interface{}{
		"runtime error: index out of range [3] with length 2",
		"some other panic",
		errors.New("not a string"),
		42,
		nil,
	}
	for _, r := range other {
		_, ok := usagePanic(r)
		assert.False(t, ok, "%v", r)
	}
}

func TestSafeExecuteUsagePanic(t *testing.T) {
	scheme := filterlang.NewScheme()
	scheme.AddField("num1", filterlang.TypeUnsigned)
	f, err := scheme.Parse(`num1 == 42`)
	require.NoError(t, err)

	_, execErr := safeExecute(filterlang.NewExecutionContext(), f)
	require.Error(t, execErr)
	assert.Contains(t, execErr.Error(), "Could not find previously registered field num1")

	ectx := filterlang.NewExecutionContext()
	ectx.AddUnsigned("num1", 42)
	match, execErr := safeExecute(ectx, f)
	require.NoError(t, execErr)
	assert.True(t, match)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
