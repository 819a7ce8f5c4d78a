// Package presets maps style buttons to prompt templates and routes every
// other request to the prompt rewriter.
package presets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"portraitbot/internal/domain"
	"portraitbot/internal/providers/prompt"
)

// Preset is a selectable style.
type Preset struct {
	Key      domain.PresetKey
	Label    string
	Template string
}

var table = []Preset{
	{
		Key:      domain.PresetBusiness,
		Label:    "Деловой портрет",
		Template: "A professional [trigger] portrait, wearing a formal business suit, high-end corporate headshot style, professional lighting, clean background",
	},
	{
		Key:      domain.PresetClown,
		Label:    "Клоун",
		Template: "A colorful [trigger] portrait as a circus clown, wearing traditional clown makeup, red nose, colorful wig, circus environment, cheerful expression",
	},
	{
		Key:      domain.PresetUFC,
		Label:    "UFC боец",
		Template: "A dynamic [trigger] portrait as a UFC fighter, wearing MMA gloves and shorts, muscular build, intense expression, fighting stance, octagon cage background, dramatic sports lighting, battle-ready pose",
	},
	{
		Key:      domain.PresetSuperhero,
		Label:    "Супергерой",
		Template: "An epic [trigger] portrait as a superhero, wearing a dramatic superhero costume with cape, muscular physique, heroic pose, city skyline background, dynamic lighting, special effects, comic book style, powerful stance",
	},
}

// Resolver turns button labels or free text into a generation prompt.
type Resolver struct {
	rewriter prompt.Rewriter
	byLabel  map[string]Preset
	byKey    map[domain.PresetKey]Preset
}

func NewResolver(rewriter prompt.Rewriter) *Resolver {
	r := &Resolver{
		rewriter: rewriter,
		byLabel:  make(map[string]Preset, len(table)),
		byKey:    make(map[domain.PresetKey]Preset, len(table)),
	}
	for _, p := range table {
		r.byLabel[normalizeLabel(p.Label)] = p
		r.byKey[p.Key] = p
	}
	return r
}

// Lookup matches a label exactly, after whitespace trimming and NFC
// normalisation. Matching is case-sensitive.
func (r *Resolver) Lookup(label string) (Preset, bool) {
	p, ok := r.byLabel[normalizeLabel(label)]
	return p, ok
}

// Template returns the template for key.
func (r *Resolver) Template(key domain.PresetKey) (string, bool) {
	p, ok := r.byKey[key]
	return p.Template, ok
}

// Resolve returns the preset template for a known label and otherwise asks
// the rewriter. Rewriter failures wrap domain.ErrTransientIO.
func (r *Resolver) Resolve(ctx context.Context, text string) (string, error) {
	if p, ok := r.Lookup(text); ok {
		return p.Template, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrUnrecognizedInput
	}
	if r.rewriter == nil {
		return "", fmt.Errorf("presets: no rewriter configured: %w", domain.ErrTransientIO)
	}
	out, err := r.rewriter.Rewrite(ctx, text)
	if err != nil {
		return "", fmt.Errorf("presets: rewrite: %w: %w", domain.ErrTransientIO, err)
	}
	return out, nil
}

// Labels returns the button labels in display order.
func (r *Resolver) Labels() []string {
	labels := make([]string, 0, len(table))
	for _, p := range table {
		labels = append(labels, p.Label)
	}
	return labels
}

// Keyboard lays the labels out one button per row.
func (r *Resolver) Keyboard() [][]string {
	rows := make([][]string, 0, len(table))
	for _, label := range r.Labels() {
		rows = append(rows, []string{label})
	}
	return rows
}

func normalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}
