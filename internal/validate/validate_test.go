package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignup_CollectsAllViolationsInOrder(t *testing.T) {
	_, violations := Signup.Validate(map[string]any{
		"name":     "",
		"email":    "not-an-email",
		"password": "123",
	})

	assert.Equal(t, Violations{
		`"name" is not allowed to be empty`,
		`"phone" is required`,
		`"email" must be a valid email`,
		`"password" length must be at least 6 characters long`,
	}, violations)
}

func TestSignup_NormalizesAndStripsUnknown(t *testing.T) {
	out, violations := Signup.Validate(map[string]any{
		"name":     "  A ",
		"phone":    "1",
		"email":    "A@A.com",
		"password": "secret1",
		"isAdmin":  true,
	})
	require.Empty(t, violations)

	assert.Equal(t, map[string]any{
		"name":     "A",
		"phone":    "1",
		"email":    "a@a.com",
		"password": "secret1",
	}, out)
}

func TestLogin_Xor(t *testing.T) {
	_, violations := Login.Validate(map[string]any{"password": "secret1"})
	assert.Equal(t, Violations{`"value" must contain at least one of [email, phone]`}, violations)

	_, violations = Login.Validate(map[string]any{"email": "a@a.com", "phone": "12345", "password": "secret1"})
	assert.Equal(t, Violations{`"value" contains a conflict between exclusive peers [email, phone]`}, violations)

	out, violations := Login.Validate(map[string]any{"phone": "12345", "password": "secret1"})
	require.Empty(t, violations)
	assert.Equal(t, "12345", out["phone"])
}

func TestLogin_InvalidPeerReportedOnce(t *testing.T) {
	_, violations := Login.Validate(map[string]any{"email": "nope", "password": "secret1"})
	assert.Equal(t, Violations{`"email" must be a valid email`}, violations)
}

func TestAlertReport(t *testing.T) {
	t.Run("nested violations", func(t *testing.T) {
		_, violations := AlertReport.Validate(map[string]any{
			"type":     "theft",
			"severity": "high",
			"location": map[string]any{"lat": "north"},
		})
		assert.Equal(t, Violations{
			`"location.lat" must be a number`,
			`"location.lng" is required`,
		}, violations)
	})

	t.Run("missing location", func(t *testing.T) {
		_, violations := AlertReport.Validate(map[string]any{"type": "theft", "severity": "high"})
		assert.Equal(t, Violations{`"location" is required`}, violations)
	})

	t.Run("coerces numbers and timestamps", func(t *testing.T) {
		out, violations := AlertReport.Validate(map[string]any{
			"type":        "theft",
			"severity":    "medium",
			"timestamp":   "2024-05-01T10:30:00+02:00",
			"location":    map[string]any{"lat": "12.97", "lng": 77.59},
			"description": "",
		})
		require.Empty(t, violations)

		assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), out["timestamp"])
		assert.Equal(t, map[string]any{"lat": 12.97, "lng": 77.59}, out["location"])
		assert.Equal(t, "", out["description"])
	})

	t.Run("bad timestamp", func(t *testing.T) {
		_, violations := AlertReport.Validate(map[string]any{
			"type":      "theft",
			"severity":  "medium",
			"timestamp": "yesterday",
			"location":  map[string]any{"lat": 1, "lng": 2},
		})
		assert.Equal(t, Violations{`"timestamp" must be in ISO 8601 date format`}, violations)
	})
}

func TestSOSTrigger_LocationFromJSONString(t *testing.T) {
	out, violations := SOSTrigger.Validate(map[string]any{"location": `{"lat":12.9,"lng":77.6}`})
	require.Empty(t, violations)
	assert.Equal(t, map[string]any{"lat": 12.9, "lng": 77.6}, out["location"])

	_, violations = SOSTrigger.Validate(map[string]any{"location": "somewhere"})
	assert.Equal(t, Violations{`"location" must be of type object`}, violations)

	_, violations = SOSTrigger.Validate(map[string]any{"description": strings.Repeat("x", 2001)})
	assert.Equal(t, Violations{`"description" length must be less than or equal to 2000 characters long`}, violations)
}

func TestNumberRules(t *testing.T) {
	schema := Object(
		Key("limit", Int().Min(1).Max(50).Default(5)),
	)

	out, violations := schema.Validate(map[string]any{})
	require.Empty(t, violations)
	assert.Equal(t, float64(5), out["limit"])

	_, violations = schema.Validate(map[string]any{"limit": 2.5})
	assert.Equal(t, Violations{`"limit" must be an integer`}, violations)

	_, violations = schema.Validate(map[string]any{"limit": "0"})
	assert.Equal(t, Violations{`"limit" must be greater than or equal to 1`}, violations)

	_, violations = schema.Validate(map[string]any{"limit": "NaN"})
	assert.Equal(t, Violations{`"limit" must be a number`}, violations)
}

func TestOneOf(t *testing.T) {
	schema := Object(Key("severity", String().OneOf("low", "medium", "high")))
	_, violations := schema.Validate(map[string]any{"severity": "extreme"})
	assert.Equal(t, Violations{`"severity" must be one of [low, medium, high]`}, violations)
}

func TestViolationsErr(t *testing.T) {
	assert.NoError(t, Violations(nil).Err())
	assert.Error(t, Violations{"x"}.Err())
}

type signupInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func serveBody(t *testing.T, schema *ObjectRule, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var got map[string]any
	h := Body(schema, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Value(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

var (
	_ Rule = (*StringRule)(nil)
	_ Rule = (*NumberRule)(nil)
	_ Rule = (*TimeRule)(nil)
	_ Rule = (*ObjectRule)(nil)
)

func TestRules_DefaultsAndRequired(t *testing.T) {
	schema := Object(
		Key("name", String().Required()),
		Key("role", String().Default("member")),
		Key("limit", Int().Default(5)),
		Key("at", Time()),
		Key("where", Object(Key("lat", Number().Required())).Required()),
	)

	got, violations := schema.Validate(map[string]any{"name": "A", "where": map[string]any{"lat": "1.5"}})
	require.Empty(t, violations)
	assert.Equal(t, map[string]any{
		"name":  "A",
		"role":  "member",
		"limit": 5.0,
		"where": map[string]any{"lat": 1.5},
	}, got)

	_, violations = schema.Validate(map[string]any{})
	assert.Equal(t, Violations{`"name" is required`, `"where" is required`}, violations)
}

func TestBody_TooLarge(t *testing.T) {
	payload := `{"email":"a@a.com","password":"` + strings.Repeat("p", 4096) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 1024)

	h := Body(Login, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("oversized body reached the handler")
	}))
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request body too large")
}

func TestFormToMap_BracketKeysWin(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := formToMap(map[string][]string{
			"location":      {`{"lat":1,"lng":2}`},
			"location[lat]": {"12.97"},
			"location[lng]": {"77.59"},
			"description":   {"help", "ignored"},
			"broken[":       {"kept"},
		})
		assert.Equal(t, map[string]any{
			"location":    map[string]any{"lat": "12.97", "lng": "77.59"},
			"description": "help",
			"broken[":     "kept",
		}, got)
	}
}

func TestBody_RejectsWithEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"name":"A"}`))
	req.Header.Set("Content-Type", "application/json")

	rec, got := serveBody(t, Signup, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, got)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			Errors []string `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, []string{`"phone" is required`, `"email" is required`, `"password" is required`}, body.Data.Errors)
}

func TestBody_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")

	rec, _ := serveBody(t, Login, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBody_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("location[lat]", "12.97"))
	require.NoError(t, mw.WriteField("location[lng]", "77.59"))
	require.NoError(t, mw.WriteField("description", "help"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sos/trigger", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec, got := serveBody(t, SOSTrigger, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, map[string]any{"lat": 12.97, "lng": 77.59}, got["location"])
	assert.Equal(t, "help", got["description"])
}

func TestBody_URLEncoded(t *testing.T) {
	form := url.Values{"email": {"a@a.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, got := serveBody(t, Login, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a@a.com", got["email"])
}

func TestDecode(t *testing.T) {
	ctx := WithValue(context.Background(), map[string]any{"name": "A", "email": "a@a.com"})
	in, err := Decode[signupInput](ctx)
	require.NoError(t, err)
	assert.Equal(t, signupInput{Name: "A", Email: "a@a.com"}, in)

	_, err = Decode[signupInput](context.Background())
	require.Error(t, err)
}
