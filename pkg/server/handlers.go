package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/aleksaelezovic/oxigo/internal/algebra"
	"github.com/aleksaelezovic/oxigo/internal/evaluator"
	"github.com/aleksaelezovic/oxigo/internal/sparqlparser"
	"github.com/aleksaelezovic/oxigo/internal/store"
	"github.com/aleksaelezovic/oxigo/pkg/rdf"
	"github.com/aleksaelezovic/oxigo/pkg/server/results"
)

// handleRoot serves the embedded Yasgui query UI.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s/sparql", scheme, r.Host)

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Oxigo SPARQL Endpoint</title>
    <link href="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.css" rel="stylesheet" type="text/css" />
    <script src="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.js"></script>
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: Arial, sans-serif;
            display: flex;
            flex-direction: column;
            height: 100vh;
        }
        .header {
            background: #2c3e50;
            color: white;
            padding: 15px 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .header h1 {
            margin: 0;
            font-size: 24px;
            font-weight: 500;
        }
        .header .info {
            margin-top: 5px;
            font-size: 14px;
            opacity: 0.9;
        }
        .header .info code {
            background: rgba(255,255,255,0.2);
            padding: 2px 6px;
            border-radius: 3px;
            font-family: monospace;
        }
        #yasgui {
            flex: 1;
            overflow: hidden;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Oxigo SPARQL Endpoint</h1>
        <div class="info">
            Endpoint: <code>` + endpointURL + `</code> |
            Total quads: <strong>` + fmt.Sprintf("%d", s.TotalQuads()) + `</strong>
        </div>
    </div>
    <div id="yasgui"></div>
    <script>
        const yasgui = new Yasgui(document.getElementById("yasgui"), {
            requestConfig: {
                endpoint: "` + endpointURL + `",
                method: "POST"
            },
            copyEndpointOnNewTab: false,
            endpointCatalogueOptions: {
                getData: function() {
                    return [
                        {
                            endpoint: "` + endpointURL + `",
                            label: "Oxigo Local"
                        }
                    ];
                }
            }
        });
    </script>
</body>
</html>`

	_, _ = w.Write([]byte(html))
}

func (s *Server) handleSPARQLOptions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDataOptions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	w.WriteHeader(http.StatusOK)
}

// handleSPARQL handles SPARQL query requests per the SPARQL 1.1 Protocol.
// https://www.w3.org/TR/sparql11-protocol/
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var queryString string

	switch r.Method {
	case http.MethodGet:
		queryString = r.URL.Query().Get("query")
		if queryString == "" {
			s.writeError(w, http.StatusBadRequest, "Missing 'query' parameter")
			return
		}

	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")

		switch {
		case strings.Contains(contentType, "application/sparql-query"):
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			queryString = string(body)

		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to parse form")
				return
			}
			queryString = r.FormValue("query")
			if queryString == "" {
				s.writeError(w, http.StatusBadRequest, "Missing 'query' parameter")
				return
			}

		default:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			queryString = string(body)
		}

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET or POST")
		return
	}

	if queryString == "" {
		s.writeError(w, http.StatusBadRequest, "Empty query")
		return
	}

	query, err := sparqlparser.Parse(queryString)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
		return
	}

	start := time.Now()
	result, err := evaluator.Evaluate(r.Context(), s.store, query)
	s.queryDuration.Observe(time.Since(start).Seconds())
	formLabel := queryFormLabel(query.Form)
	if err != nil {
		s.queriesTotal.WithLabelValues(formLabel, "error").Inc()
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Execution error: %v", err))
		return
	}
	s.queriesTotal.WithLabelValues(formLabel, "ok").Inc()

	format := s.negotiateFormat(r.Header.Get("Accept"))
	s.writeResult(w, result, format)
}

// handleUpdate handles SPARQL 1.1 Update requests per the Protocol's
// direct POST and URL-encoded forms.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	contentType := r.Header.Get("Content-Type")
	var updateString string

	switch {
	case strings.Contains(contentType, "application/sparql-update"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		updateString = string(body)

	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			s.writeError(w, http.StatusBadRequest, "Failed to parse form")
			return
		}
		updateString = r.FormValue("update")

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		updateString = string(body)
	}

	if updateString == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'update' request body")
		return
	}

	u, err := sparqlparser.ParseUpdate(updateString)
	if err != nil {
		s.updatesTotal.WithLabelValues("parse_error").Inc()
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
		return
	}

	if err := s.updater.Execute(r.Context(), u); err != nil {
		s.updatesTotal.WithLabelValues("error").Inc()
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Update error: %v", err))
		return
	}
	s.updatesTotal.WithLabelValues("ok").Inc()

	w.WriteHeader(http.StatusNoContent)
}

// handleDataUpload handles bulk data uploads in various RDF formats.
func (s *Server) handleDataUpload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		s.writeError(w, http.StatusBadRequest, "Missing Content-Type header")
		return
	}

	parser, err := rdf.NewParser(contentType)
	if err != nil {
		supportedTypes := rdf.GetSupportedContentTypes()
		s.writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported content type: %s. Supported types: %v", contentType, supportedTypes))
		return
	}

	startTime := time.Now()
	quads, err := parser.Parse(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
		return
	}

	i := 0
	n, err := s.store.BulkLoad(r.Context(), func() (*rdf.Quad, error) {
		if i >= len(quads) {
			return nil, io.EOF
		}
		q := quads[i]
		i++
		return q, nil
	}, store.DefaultBulkLoadOptions())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Insert error: %v", err))
		return
	}

	duration := time.Since(startTime)

	response := map[string]any{
		"success": true,
		"statistics": map[string]any{
			"quadsInserted":  n,
			"durationMs":     duration.Milliseconds(),
			"quadsPerSecond": float64(n) / duration.Seconds(),
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func queryFormLabel(f algebra.QueryForm) string {
	switch f {
	case algebra.FormSelect:
		return "select"
	case algebra.FormAsk:
		return "ask"
	case algebra.FormConstruct:
		return "construct"
	case algebra.FormDescribe:
		return "describe"
	default:
		return "unknown"
	}
}

// graphTarget resolves the ?default / ?graph=<iri> query parameter pair
// of the SPARQL 1.1 Graph Store HTTP Protocol into a graph term.
func graphTarget(r *http.Request) (rdf.Term, bool) {
	q := r.URL.Query()
	if _, ok := q["default"]; ok {
		return rdf.NewDefaultGraph(), true
	}
	if iri := q.Get("graph"); iri != "" {
		return rdf.NewNamedNode(iri), true
	}
	return nil, false
}

// handleGraphStoreGet implements GET on the Graph Store HTTP Protocol:
// https://www.w3.org/TR/sparql11-http-rdf-update/
func (s *Server) handleGraphStoreGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	graph, ok := graphTarget(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Missing 'default' or 'graph' parameter")
		return
	}

	var quads []*rdf.Quad
	err := s.store.Match(r.Context(), store.Pattern{Graph: graph}, func(q *rdf.Quad) error {
		quads = append(quads, q)
		return nil
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Read error: %v", err))
		return
	}

	data, err := results.FormatConstructResultNTriples(quads)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/n-triples; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleGraphStorePut replaces a graph's contents entirely.
func (s *Server) handleGraphStorePut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	graph, ok := graphTarget(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Missing 'default' or 'graph' parameter")
		return
	}

	if err := s.clearGraph(r.Context(), graph); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Clear error: %v", err))
		return
	}
	s.mergeGraphUpload(w, r, graph)
}

// handleGraphStorePost merges uploaded data into a graph.
func (s *Server) handleGraphStorePost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	graph, ok := graphTarget(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Missing 'default' or 'graph' parameter")
		return
	}
	s.mergeGraphUpload(w, r, graph)
}

func (s *Server) mergeGraphUpload(w http.ResponseWriter, r *http.Request, graph rdf.Term) {
	contentType := r.Header.Get("Content-Type")
	parser, err := rdf.NewParser(contentType)
	if err != nil {
		s.writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported content type: %s", contentType))
		return
	}

	parsed, err := parser.Parse(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
		return
	}

	err = s.store.Transaction(r.Context(), func(txn *store.QuadStoreTxn) error {
		for _, q := range parsed {
			if _, err := txn.Insert(rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Insert error: %v", err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleGraphStoreDelete drops a graph's contents.
func (s *Server) handleGraphStoreDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	graph, ok := graphTarget(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Missing 'default' or 'graph' parameter")
		return
	}
	if err := s.clearGraph(r.Context(), graph); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Clear error: %v", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) clearGraph(ctx context.Context, graph rdf.Term) error {
	return s.store.Transaction(ctx, func(txn *store.QuadStoreTxn) error {
		return txn.Clear(graph)
	})
}
