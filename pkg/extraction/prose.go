package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// ProseRecognizer runs the prose tokenizer and entity model in process.
// Its model is trained on English text, so French questions mostly reach it
// for capitalized person and place names. The tagger and entity weights are
// decoded once, on first use, and shared by every later question.
type ProseRecognizer struct {
	once    sync.Once
	model   *prose.Model
	loadErr error
}

// NewProseRecognizer creates a new in-process recognizer
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

// Analyze implements Recognizer
func (p *ProseRecognizer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, err := p.loadModel()
	if err != nil {
		return nil, err
	}

	// Tagging stays on: the entity model reads the part-of-speech tags.
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false), prose.UsingModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}

	analysis := &Analysis{}
	offset := 0
	for _, ent := range doc.Entities() {
		start := strings.Index(text[offset:], ent.Text)
		if start >= 0 {
			start += offset
			offset = start + len(ent.Text)
		}
		analysis.Entities = append(analysis.Entities, Entity{
			Text:  ent.Text,
			Label: normalizeLabel(ent.Label),
			Start: start,
			End:   start + len(ent.Text),
		})
	}
	for _, tok := range doc.Tokens() {
		analysis.Tokens = append(analysis.Tokens, Token{Text: tok.Text, Lemma: lemma(tok.Text)})
	}
	return analysis, nil
}

func (p *ProseRecognizer) loadModel() (*prose.Model, error) {
	p.once.Do(func() {
		doc, err := prose.NewDocument("Paris", prose.WithSegmentation(false))
		if err != nil {
			p.loadErr = fmt.Errorf("failed to load prose model: %w", err)
			return
		}
		p.model = doc.Model
	})
	return p.model, p.loadErr
}
