package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/faceratio/internal/geometry"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

const (
	// maxBodyBytes limits ordinary JSON request bodies.
	maxBodyBytes = 10 << 10
	// maxFrameBodyBytes limits frame pushes, which may carry full meshes.
	maxFrameBodyBytes = 1 << 20
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads at most limit bytes of JSON into dst and validates it.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if err := validateStruct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// validateStruct runs struct tag validation and reports the first failure
// using the field's JSON name.
func validateStruct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := jsonFieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "gt", "gte", "min":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	case "lt", "lte", "max":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Errorf("%s is invalid", field)
}

// jsonFieldPath drops the root struct name, so
// "createScanRequest.ratios.faceStructure" becomes "ratios.faceStructure".
func jsonFieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// RatiosRequest is the wire form of a ratio set.
type RatiosRequest struct {
	FaceStructure  float64 `json:"faceStructure" validate:"required,gt=0"`
	RuleOfFifths   float64 `json:"ruleOfFifths" validate:"required,gt=0"`
	NasalOral      float64 `json:"nasalOral" validate:"required,gt=0"`
	VerticalThirds float64 `json:"verticalThirds" validate:"required,gt=0"`
	Symmetry       float64 `json:"symmetry" validate:"required,gt=0,lte=1"`
}

// RatioSet converts the request into a geometry.RatioSet.
func (r RatiosRequest) RatioSet() geometry.RatioSet {
	return geometry.RatioSet{
		FaceStructure:  r.FaceStructure,
		RuleOfFifths:   r.RuleOfFifths,
		NasalOral:      r.NasalOral,
		VerticalThirds: r.VerticalThirds,
		Symmetry:       r.Symmetry,
	}
}

// HealthHandler reports liveness.
type HealthHandler struct {
	version string
	now     func() time.Time
}

// NewHealthHandler creates a health handler reporting version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, now: time.Now}
}

// Get handles the health check endpoint.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
