// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pdiddy/latex2awa/internal/convert"
	"github.com/pdiddy/latex2awa/internal/latex"
	"github.com/pdiddy/latex2awa/internal/plaintext"
)

// Response headers set by handleConvert.
const (
	HeaderTitleCount    = "X-Title-Count"
	HeaderCitationCount = "X-Citation-Count"
)

// handleConvert converts the LaTeX request body and answers with plain text.
// Query parameters suppress_titles and recursive override the defaults.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	cfg := s.conv
	var err error
	if cfg.SuppressTitles, err = boolParam(r, "suppress_titles", cfg.SuppressTitles); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.Recursive, err = boolParam(r, "recursive", cfg.Recursive); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxBodyBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
		return
	}

	var out bytes.Buffer
	res, err := convert.Convert(string(data), &out, cfg, nil)
	if err != nil {
		var perr *latex.ParseError
		if errors.As(err, &perr) || errors.Is(err, plaintext.ErrMalformedTitleArgument) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.log.Error("conversion failed", "error", err)
		jsonError(w, "conversion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !cfg.SuppressTitles {
		w.Header().Set(HeaderTitleCount, strconv.Itoa(res.Titles))
	}
	w.Header().Set(HeaderCitationCount, strconv.Itoa(res.Citations))
	w.Write(out.Bytes())
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}
