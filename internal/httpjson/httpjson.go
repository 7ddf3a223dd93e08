package httpjson

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// Retry indique une panne du fournisseur distant: la même requête peut réussir plus tard.
	Retry bool `json:"retry,omitempty"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	Write(w, status, ErrorBody{Error: message})
}

// WriteCodedError ajoute le code d'erreur stable (ex: "fetch_timeout") au corps.
func WriteCodedError(w http.ResponseWriter, status int, code string, message string) {
	Write(w, status, ErrorBody{Error: message, Code: code})
}

// Decode lit un corps JSON en refusant les champs inconnus.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
