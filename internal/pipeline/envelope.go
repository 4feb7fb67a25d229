package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mortgageiq/loanforge/internal/model"
)

// Page is one OCR chunk of a multi-page document: raw text plus any
// pre-structured flat fields the structuring collaborator produced for it
type Page struct {
	Number int               `json:"number"`
	Text   string            `json:"text,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Envelope is the intake contract for one document: its declared type, an
// opaque source identifier, and the pages in capture order
type Envelope struct {
	DocType  model.DocumentType `json:"doc_type"`
	SourceID string             `json:"source_id,omitempty"`
	Source   string             `json:"source,omitempty"`
	Pages    []Page             `json:"pages"`
}

// LoadEnvelope reads a document envelope from a JSON file
func LoadEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope %s: %w", path, err)
	}
	if !env.DocType.Valid() {
		return nil, fmt.Errorf("envelope %s: unknown document type %q", path, env.DocType)
	}
	if len(env.Pages) == 0 {
		return nil, fmt.Errorf("envelope %s: no pages", path)
	}
	return &env, nil
}

var indexedField = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9]*)_(\d+)_(.+)$`)

// mergePages folds a multi-page envelope into a single extraction input.
// Text concatenates in page order. Scalar flat fields keep the first page's
// value; indexed list-pattern fields are renumbered so that page two's
// deposit_1 continues page one's sequence instead of colliding with it.
func mergePages(pages []Page) (string, map[string]string) {
	ordered := make([]Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var text strings.Builder
	fields := make(map[string]string)
	nextIndex := make(map[string]int) // prefix -> next free index

	for _, page := range ordered {
		if page.Text != "" {
			if text.Len() > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(page.Text)
		}

		// Remap each page's indexed fields as a block so intra-page order
		// survives renumbering
		remap := make(map[string]int) // prefix_N within this page -> global index
		for _, key := range sortedKeys(page.Fields) {
			m := indexedField.FindStringSubmatch(key)
			if m == nil {
				if _, seen := fields[key]; !seen {
					fields[key] = page.Fields[key]
				}
				continue
			}
			prefix := m[1]
			local := prefix + "_" + m[2]
			idx, ok := remap[local]
			if !ok {
				nextIndex[prefix]++
				idx = nextIndex[prefix]
				remap[local] = idx
			}
			fields[prefix+"_"+strconv.Itoa(idx)+"_"+m[3]] = page.Fields[key]
		}
	}

	return text.String(), fields
}

// sortedKeys orders a page's fields by prefix, numeric index, then field
// name, so renumbering is deterministic
func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := indexedField.FindStringSubmatch(keys[i]), indexedField.FindStringSubmatch(keys[j])
		if mi == nil || mj == nil {
			return keys[i] < keys[j]
		}
		if mi[1] != mj[1] {
			return mi[1] < mj[1]
		}
		ni, _ := strconv.Atoi(mi[2])
		nj, _ := strconv.Atoi(mj[2])
		if ni != nj {
			return ni < nj
		}
		return mi[3] < mj[3]
	})
	return keys
}
