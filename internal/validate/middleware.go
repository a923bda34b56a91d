package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/http/response"
)

const maxFormMemory = 10 << 20

type contextKey string

const valueKey contextKey = "validated_body"

// Body validates the request body against schema and stores the normalized
// value in the request context. Invalid input never reaches next.
func Body(schema *ObjectRule, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			input, err := decodeBody(r)
			if err != nil {
				response.Error(w, r, logger, err)
				return
			}

			value, violations := schema.Validate(input)
			if err := violations.Err(); err != nil {
				response.Error(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), value)))
		})
	}
}

// WithValue attaches a normalized value to ctx
func WithValue(ctx context.Context, value map[string]any) context.Context {
	return context.WithValue(ctx, valueKey, value)
}

// Value returns the normalized value stored by Body
func Value(ctx context.Context) (map[string]any, bool) {
	v, ok := ctx.Value(valueKey).(map[string]any)
	return v, ok
}

// Decode converts the normalized value in ctx into T
func Decode[T any](ctx context.Context) (T, error) {
	var out T
	value, ok := Value(ctx)
	if !ok {
		return out, fmt.Errorf("no validated body in context")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("marshal validated body: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode validated body: %w", err)
	}
	return out, nil
}

func decodeBody(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, bodyError(err, "Malformed multipart body")
		}
		return formToMap(r.MultipartForm.Value), nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err, "Malformed form body")
		}
		return formToMap(r.PostForm), nil
	}

	input := map[string]any{}
	if r.Body == nil {
		return input, nil
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	switch {
	case errors.Is(err, io.EOF):
		return map[string]any{}, nil
	case err != nil:
		return nil, bodyError(err, "Malformed JSON body")
	}
	return input, nil
}

// bodyError reports a body cut off by http.MaxBytesReader as too large and
// anything else as malformed.
func bodyError(err error, malformed string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.TooLarge("Request body too large")
	}
	return apperr.BadRequest(malformed)
}

// formToMap keeps the first value of each key. Bracket keys such as
// location[lat] become nested objects and take precedence over a plain
// key of the same name.
func formToMap(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	nested := map[string]map[string]any{}
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		parent, child, ok := splitBracket(key)
		if !ok {
			out[key] = vs[0]
			continue
		}
		if nested[parent] == nil {
			nested[parent] = map[string]any{}
		}
		nested[parent][child] = vs[0]
	}
	for parent, obj := range nested {
		out[parent] = obj
	}
	return out
}

func splitBracket(key string) (string, string, bool) {
	parent, rest, ok := strings.Cut(key, "[")
	if !ok || parent == "" || !strings.HasSuffix(rest, "]") {
		return "", "", false
	}
	child := strings.TrimSuffix(rest, "]")
	if child == "" || strings.ContainsAny(child, "[]") {
		return "", "", false
	}
	return parent, child, true
}
