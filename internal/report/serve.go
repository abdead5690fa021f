package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
)

// Serve starts a minimal HTTP server rendering rep as a Markdown table
// through goldmark into HTML (spec.md §6's `make-status-report --serve`:
// a debug aid only, the JSON document remains the contract). It blocks
// until ctx is canceled or the listener fails.
func Serve(ctx context.Context, addr string, rep *Report) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		html, err := renderHTML(rep)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
	})
	mux.HandleFunc("/report.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rep)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

func renderHTML(rep *Report) ([]byte, error) {
	var md bytes.Buffer
	md.WriteString("# Migration status report\n\n")
	md.WriteString("| Migrator | Package | Status | PR |\n")
	md.WriteString("|---|---|---|---|\n")
	for _, n := range rep.Nodes {
		pr := n.PRURL
		if pr == "" {
			pr = "-"
		}
		fmt.Fprintf(&md, "| %s | %s | %s | %s |\n", n.MigratorKey, n.Package, n.Status, pr)
	}
	if len(rep.CorruptKeys) > 0 {
		md.WriteString("\n## Corrupt keys\n\n")
		for _, k := range rep.CorruptKeys {
			fmt.Fprintf(&md, "- `%s`\n", k)
		}
	}

	var html bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &html); err != nil {
		return nil, err
	}
	return html.Bytes(), nil
}
