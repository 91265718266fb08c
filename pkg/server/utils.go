package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/pkg/server/results"
)

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	log.Printf("Error: %s", message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":%d,"message":"%s"}}`, statusCode, message)))
}

// negotiateFormat determines the response format based on Accept header
func (s *Server) negotiateFormat(acceptHeader string) string {
	accept := strings.ToLower(acceptHeader)

	if strings.Contains(accept, "application/sparql-results+xml") {
		return "xml"
	}
	if strings.Contains(accept, "application/sparql-results+json") {
		return "json"
	}
	if strings.Contains(accept, "text/csv") {
		return "csv"
	}
	if strings.Contains(accept, "text/tab-separated-values") {
		return "tsv"
	}
	if strings.Contains(accept, "application/json") {
		return "json"
	}
	if strings.Contains(accept, "text/xml") || strings.Contains(accept, "application/xml") {
		return "xml"
	}

	return "json"
}

// writeResult writes the query result in the specified format
func (s *Server) writeResult(w http.ResponseWriter, result *evaluator.Result, format string) {
	var data []byte
	var err error
	var contentType string

	if result.Form == algebra.FormConstruct || result.Form == algebra.FormDescribe {
		contentType = "application/n-triples; charset=utf-8"
		data, err = results.FormatConstructResultNTriples(result.Quads)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	switch format {
	case "xml":
		contentType = "application/sparql-results+xml; charset=utf-8"
		if result.Form == algebra.FormAsk {
			data, err = results.FormatAskResultXML(result)
		} else {
			data, err = results.FormatSelectResultsXML(result)
		}

	case "csv":
		contentType = "text/csv; charset=utf-8"
		if result.Form == algebra.FormAsk {
			data, err = results.FormatAskResultCSV(result)
		} else {
			data, err = results.FormatSelectResultsCSV(result)
		}

	case "tsv":
		contentType = "text/tab-separated-values; charset=utf-8"
		if result.Form == algebra.FormAsk {
			data, err = results.FormatAskResultTSV(result)
		} else {
			data, err = results.FormatSelectResultsTSV(result)
		}

	default: // json
		contentType = "application/sparql-results+json; charset=utf-8"
		if result.Form == algebra.FormAsk {
			data, err = results.FormatAskResultJSON(result)
		} else {
			data, err = results.FormatSelectResultsJSON(result)
		}
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
