package toolserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
	"golang.org/x/net/html"
)

// DocsAddInput is docs_add's argument shape.
type DocsAddInput struct {
	FilePath string            `json:"file_path" jsonschema:"minLength=1"`
	Content  string            `json:"content" jsonschema:"minLength=1"`
	DocType  string            `json:"doc_type,omitempty" default:"kb"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocsAddOutput is docs_add's result shape.
type DocsAddOutput struct {
	DocID  string `json:"doc_id"`
	Status string `json:"status"`
}

// DocsGetInput is shared by docs_get, docs_list, and fetch_docs: every one
// of them is "filter the Document catalogue by id/path/type", differing
// only in intent at the call site.
type DocsGetInput struct {
	DocIDs    []string `json:"doc_ids,omitempty"`
	FilePaths []string `json:"file_paths,omitempty"`
	DocTypes  []string `json:"doc_types,omitempty"`
	Limit     int      `json:"limit,omitempty" default:"10" jsonschema:"minimum=1,maximum=200"`
}

// DocsGetOutput is docs_get/docs_list/fetch_docs's result shape.
type DocsGetOutput struct {
	Documents []*model.Document `json:"documents"`
	Count     int               `json:"count"`
}

// DocshotLinkInput is docshot_link's argument shape.
type DocshotLinkInput struct {
	DecisionID string            `json:"decision_id" jsonschema:"minLength=1"`
	DocShotID  string            `json:"doc_shot_id,omitempty"`
	Docs       []*model.Document `json:"docs" jsonschema:"minItems=1"`
	FetchedAt  int64             `json:"fetched_at,omitempty"`
}

// DocshotLinkOutput is docshot_link's result shape.
type DocshotLinkOutput struct {
	DocShotID  string `json:"doc_shot_id"`
	DecisionID string `json:"decision_id"`
	DocCount   int    `json:"doc_count"`
}

const (
	mdInputTypePath = "path"
	mdInputTypeURL  = "url"
)

// MdXtractInput is md_xtract's argument shape.
type MdXtractInput struct {
	Input     string `json:"input" jsonschema:"minLength=1"`
	InputType string `json:"input_type,omitempty" default:"path" jsonschema:"enum=path,enum=url"`
	MaxChars  int    `json:"max_chars,omitempty" default:"0" jsonschema:"minimum=0,maximum=200000"`
	OCR       bool   `json:"ocr,omitempty" default:"false"`
}

// MdXtractOutput is md_xtract's result shape.
type MdXtractOutput struct {
	Text      string `json:"text"`
	Chars     int    `json:"chars"`
	Truncated bool   `json:"truncated"`
}

func registerDocTools(r *Registry, d *Deps) {
	Register(r, "docs_add", "Store or update a knowledge-base document, keyed by file path.",
		func(ctx context.Context, in DocsAddInput) (DocsAddOutput, error) {
			doc := &model.Document{
				FilePath:  in.FilePath,
				Content:   in.Content,
				DocType:   in.DocType,
				Metadata:  in.Metadata,
				UpdatedAt: d.now(),
			}
			id, err := d.Graph.AddDocument(ctx, doc)
			if err != nil {
				return DocsAddOutput{}, err
			}
			return DocsAddOutput{DocID: id, Status: "stored"}, nil
		})

	Register(r, "docs_get", "Fetch documents by id, file path, or doc type.",
		func(ctx context.Context, in DocsGetInput) (DocsGetOutput, error) {
			return docsFetch(ctx, d, in)
		})

	Register(r, "docs_list", "List documents by id, file path, or doc type.",
		func(ctx context.Context, in DocsGetInput) (DocsGetOutput, error) {
			return docsFetch(ctx, d, in)
		})

	Register(r, "fetch_docs", "Fetch documents for inclusion in a new DocShot.",
		func(ctx context.Context, in DocsGetInput) (DocsGetOutput, error) {
			return docsFetch(ctx, d, in)
		})

	Register(r, "docshot_link", "Link a content-addressed DocShot over a set of documents to a decision.",
		func(ctx context.Context, in DocshotLinkInput) (DocshotLinkOutput, error) {
			fetchedAt := in.FetchedAt
			if fetchedAt == 0 {
				fetchedAt = d.now()
			}
			docShotID, err := d.Graph.LinkDecisionDocs(ctx, in.DecisionID, in.Docs, fetchedAt)
			if err != nil {
				return DocshotLinkOutput{}, err
			}
			return DocshotLinkOutput{DocShotID: docShotID, DecisionID: in.DecisionID, DocCount: len(in.Docs)}, nil
		})

	Register(r, "md_xtract", "Extract plain text from a local file or a fetched URL.",
		func(ctx context.Context, in MdXtractInput) (MdXtractOutput, error) {
			if in.OCR {
				return MdXtractOutput{}, fmt.Errorf("%w: ocr extraction is not available in this deployment", apperrors.ErrInvalidArgument)
			}
			var (
				text string
				err  error
			)
			switch in.InputType {
			case mdInputTypeURL:
				text, err = xtractURL(ctx, in.Input)
			case mdInputTypePath, "":
				text, err = xtractPath(in.Input)
			default:
				return MdXtractOutput{}, fmt.Errorf("%w: unknown input_type %q", apperrors.ErrInvalidArgument, in.InputType)
			}
			if err != nil {
				return MdXtractOutput{}, err
			}
			truncated := false
			if in.MaxChars > 0 && len(text) > in.MaxChars {
				text = text[:in.MaxChars]
				truncated = true
			}
			return MdXtractOutput{Text: text, Chars: len(text), Truncated: truncated}, nil
		})
}

func docsFetch(ctx context.Context, d *Deps, in DocsGetInput) (DocsGetOutput, error) {
	docs, err := d.Graph.GetDocuments(ctx, in.DocIDs, in.FilePaths, in.DocTypes, in.Limit)
	if err != nil {
		return DocsGetOutput{}, err
	}
	return DocsGetOutput{Documents: docs, Count: len(docs)}, nil
}

func xtractPath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("md_xtract: reading %s: %w", path, err)
	}
	return string(data), nil
}

func xtractURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("md_xtract: building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("md_xtract: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("md_xtract: reading response body: %w", err)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return htmlToText(string(body)), nil
	}
	return string(body), nil
}

// htmlToText strips tags from an HTML document, keeping only its visible
// text nodes, space-joined.
func htmlToText(doc string) string {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.TrimSpace(b.String())
}
