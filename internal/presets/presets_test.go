package presets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"portraitbot/internal/domain"
)

type stubRewriter struct {
	calls []string
	out   string
	err   error
}

func (s *stubRewriter) Rewrite(_ context.Context, request string) (string, error) {
	s.calls = append(s.calls, request)
	return s.out, s.err
}

func TestEveryPresetHasOneTrigger(t *testing.T) {
	r := NewResolver(nil)
	require.Len(t, r.Labels(), len(domain.PresetKeys))
	for _, key := range domain.PresetKeys {
		tmpl, ok := r.Template(key)
		require.True(t, ok, "missing template for %s", key)
		require.Equal(t, 1, strings.Count(tmpl, domain.TriggerToken), "template %s", key)
	}
}

func TestResolvePresetIsStableAndSkipsRewriter(t *testing.T) {
	rw := &stubRewriter{out: "rewritten [trigger]"}
	r := NewResolver(rw)
	for _, label := range r.Labels() {
		first, err := r.Resolve(context.Background(), label)
		require.NoError(t, err)
		second, err := r.Resolve(context.Background(), label)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Contains(t, first, domain.TriggerToken)
	}
	require.Empty(t, rw.calls)
}

func TestResolveNormalisesLabel(t *testing.T) {
	r := NewResolver(&stubRewriter{})
	decomposed := norm.NFD.String("Супергерой")
	p, ok := r.Lookup("  " + decomposed + "\n")
	require.True(t, ok)
	require.Equal(t, domain.PresetSuperhero, p.Key)

	_, ok = r.Lookup("клоун")
	require.False(t, ok, "lookup must stay case-sensitive")
}

func TestResolveFreeTextUsesRewriter(t *testing.T) {
	rw := &stubRewriter{out: "Portrait of an astronaut, user's face. [trigger]"}
	r := NewResolver(rw)
	got, err := r.Resolve(context.Background(), "космонавт")
	require.NoError(t, err)
	require.Equal(t, rw.out, got)
	require.Equal(t, []string{"космонавт"}, rw.calls)
}

func TestResolveRewriterFailureIsTransient(t *testing.T) {
	r := NewResolver(&stubRewriter{err: errors.New("429")})
	_, err := r.Resolve(context.Background(), "пират")
	require.ErrorIs(t, err, domain.ErrTransientIO)
	require.ErrorContains(t, err, "429")
}

func TestResolveBlankText(t *testing.T) {
	r := NewResolver(&stubRewriter{})
	_, err := r.Resolve(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrUnrecognizedInput)
}

func TestKeyboardLayout(t *testing.T) {
	r := NewResolver(nil)
	require.Equal(t, [][]string{{"Деловой портрет"}, {"Клоун"}, {"UFC боец"}, {"Супергерой"}}, r.Keyboard())
}
