package graph

import (
	"encoding/json"
	"net/http"

	"warimas-orderflow/internal/utils"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ServeHTTP accepts operations as a JSON POST body, or queries as GET
// parameters. Requests that never reach execution answer 422.
func (s *Schema) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params graphql.RawParams

	switch r.Method {
	case http.MethodPost:
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil {
			writeErrors(w, http.StatusBadRequest, gqlerror.Errorf("json request body could not be decoded: %v", err))
			return
		}
	case http.MethodGet:
		q := r.URL.Query()
		params.Query = q.Get("query")
		params.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params.Variables); err != nil {
				writeErrors(w, http.StatusBadRequest, gqlerror.Errorf("variables could not be decoded: %v", err))
				return
			}
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeErrors(w, http.StatusMethodNotAllowed, gqlerror.Errorf("%s is not supported", r.Method))
		return
	}

	resp := s.exec(r.Context(), params, r.Method == http.MethodPost)
	code := http.StatusOK
	if resp.Data == nil {
		code = http.StatusUnprocessableEntity
	}
	utils.WriteJSON(w, code, resp)
}

func writeErrors(w http.ResponseWriter, code int, errs ...*gqlerror.Error) {
	utils.WriteJSON(w, code, &graphql.Response{Errors: errs})
}

// Playground serves the GraphQL playground against endpoint.
func Playground(endpoint string) http.HandlerFunc {
	return playground.Handler("Order Flow Playground", endpoint)
}
