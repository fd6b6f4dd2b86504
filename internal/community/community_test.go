package community

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/llm"
	"EnPeak/internal/moderation"
	"EnPeak/internal/scenario"
)

type stubClient struct {
	text string
	err  error
	reqs []llm.Request
}

func (s *stubClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.text}, nil
}

func sampleDraft(title string) *Scenario {
	return &Scenario{
		Title:     title,
		Place:     "Bakery",
		Situation: "Buying bread",
		Stages: []scenario.Stage{
			{Ordinal: 1, Name: "Greeting", OpeningLine: "Hi! What can I get you?"},
			{Ordinal: 2, Name: "Pay"},
		},
	}
}

func newService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryStore(), moderation.NewKeywordGate(), WithClock(func() time.Time { return now }))
	return svc, &now
}

func TestPublishAssignsDefaults(t *testing.T) {
	svc, _ := newService(t)
	published, err := svc.Publish(context.Background(), sampleDraft(""), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(published.ID, "community_"))
	require.Len(t, published.ID, len("community_")+8)
	require.Equal(t, "Untitled", published.Title)
	require.Equal(t, "Anonymous", published.Author)
	require.Equal(t, scenario.DifficultyIntermediate, published.Difficulty)
	require.True(t, published.Approved)
	require.NotNil(t, published.Tags)
}

func TestPublishRejectsInappropriateContent(t *testing.T) {
	svc, _ := newService(t)
	draft := sampleDraft("Talking about porn")
	_, err := svc.Publish(context.Background(), draft, "kim")
	require.Error(t, err)
	require.Equal(t, xerrors.CodeModerationRejected, xerrors.CodeOf(err))
}

func TestPublishRejectsUnplayableScenario(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	empty := sampleDraft("No stages")
	empty.Stages = nil
	_, err := svc.Publish(ctx, empty, "kim")
	require.Equal(t, xerrors.CodeInvalidInput, xerrors.CodeOf(err))

	gapped := sampleDraft("Gapped")
	gapped.Stages[1].Ordinal = 3
	_, err = svc.Publish(ctx, gapped, "kim")
	require.Equal(t, xerrors.CodeInvalidInput, xerrors.CodeOf(err))

	list, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Zero(t, list.Total)
}

func TestListSortsAndLimits(t *testing.T) {
	svc, now := newService(t)
	ctx := context.Background()
	for i, title := range []string{"old", "middle", "new"} {
		*now = now.Add(time.Duration(i+1) * time.Minute)
		draft := sampleDraft(title)
		draft.ID = title
		if title == "middle" {
			draft.Difficulty = scenario.DifficultyBeginner
		}
		_, err := svc.Publish(ctx, draft, "kim")
		require.NoError(t, err)
	}
	_, err := svc.Like(ctx, "old")
	require.NoError(t, err)
	_, err = svc.Like(ctx, "old")
	require.NoError(t, err)

	popular, err := svc.List(ctx, ListOptions{Sort: SortPopular})
	require.NoError(t, err)
	require.Equal(t, 3, popular.Total)
	require.Equal(t, []string{"old", "new", "middle"}, ids(popular.Scenarios))

	recent, err := svc.List(ctx, ListOptions{Sort: SortRecent, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, recent.Total)
	require.Equal(t, []string{"new", "middle"}, ids(recent.Scenarios))

	beginner, err := svc.List(ctx, ListOptions{Sort: SortBeginner})
	require.NoError(t, err)
	require.Equal(t, 1, beginner.Total)
	require.Equal(t, []string{"middle"}, ids(beginner.Scenarios))
}

func TestGetCountsPlaysAndLikeCounts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	published, err := svc.Publish(ctx, sampleDraft("Bread"), "kim")
	require.NoError(t, err)

	got, err := svc.Get(ctx, published.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Plays)

	likes, err := svc.Like(ctx, published.ID)
	require.NoError(t, err)
	require.Equal(t, 1, likes)

	_, err = svc.Get(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = svc.Like(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteRequiresAuthor(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	published, err := svc.Publish(ctx, sampleDraft("Bread"), "kim")
	require.NoError(t, err)

	err = svc.Delete(ctx, published.ID, "lee")
	require.True(t, errors.Is(err, ErrForbidden))
	require.NoError(t, svc.Delete(ctx, published.ID, "kim"))
	_, err = svc.Get(ctx, published.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryServesPlayableScenarios(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	draft := sampleDraft("Bread")
	draft.Stages[0].AcceptanceKeywords = []string{"bread"}
	published, err := svc.Publish(ctx, draft, "kim")
	require.NoError(t, err)

	repo := svc.Repository()
	sc, err := repo.Load(ctx, published.ID)
	require.NoError(t, err)
	require.Equal(t, scenario.ModeGenerative, sc.Mode)
	require.Equal(t, CategoryCommunity, sc.Category)
	require.Empty(t, sc.Stages[0].AcceptanceKeywords)

	list, err := repo.List(ctx, scenario.Filter{Category: CategoryCommunity})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = repo.Load(ctx, "missing")
	require.True(t, errors.Is(err, scenario.ErrNotFound))

	require.NoError(t, svc.RecordPlay(ctx, published.ID))
	require.NoError(t, svc.RecordPlay(ctx, "cafe_order"))
	stored, err := svc.store.Get(ctx, published.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Plays)
}

func TestDetermineDifficulty(t *testing.T) {
	cases := []struct {
		situation string
		stages    int
		want      string
	}{
		{"Job interview at a bank", 3, scenario.DifficultyAdvanced},
		{"커피 주문하기", 4, scenario.DifficultyBeginner},
		{"Asking for directions", 2, scenario.DifficultyBeginner},
		{"Asking for directions", 5, scenario.DifficultyAdvanced},
		{"Asking for directions", 3, scenario.DifficultyIntermediate},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetermineDifficulty(tc.situation, tc.stages), tc.situation)
	}
}

func TestAuthoringCreateUsesModelOrFallback(t *testing.T) {
	ctx := context.Background()
	dc := DraftContext{Place: "Airport", Situation: "Lost luggage"}

	client := &stubClient{text: "어떤 상황을 원하세요?"}
	res, err := NewAuthoring(client, moderation.NewKeywordGate()).Create(ctx, dc)
	require.NoError(t, err)
	require.Equal(t, "어떤 상황을 원하세요?", res.Message)
	require.Equal(t, "started", res.Status)
	require.Equal(t, authoringSystemPrompt, client.reqs[0].SystemPrompt)
	require.Contains(t, client.reqs[0].Prompt, "Time: Not specified")

	res, err = NewAuthoring(&stubClient{err: llm.ErrExhausted}, moderation.NewKeywordGate()).Create(ctx, dc)
	require.NoError(t, err)
	require.Contains(t, res.Message, "\"Airport\"에서 \"Lost luggage\"")

	_, err = NewAuthoring(nil, moderation.NewKeywordGate()).Create(ctx, DraftContext{Place: "Bar", Situation: "buying drug"})
	require.Equal(t, xerrors.CodeModerationRejected, xerrors.CodeOf(err))
}

func TestAuthoringRefineDetectsCompletion(t *testing.T) {
	ctx := context.Background()
	author := NewAuthoring(&stubClient{text: "좋아요"}, moderation.NewKeywordGate())
	messages := []Message{
		{Role: "assistant", Content: "어떤 상황인가요?"},
		{Role: "user", Content: "이제 완성해 주세요"},
	}
	res, err := author.Refine(ctx, DraftContext{Place: "Hotel", Situation: "Check in"}, messages)
	require.NoError(t, err)
	require.True(t, res.ScenarioReady)

	res, err = NewAuthoring(nil, nil).Refine(ctx, DraftContext{}, messages[:1])
	require.NoError(t, err)
	require.False(t, res.ScenarioReady)
	require.Contains(t, res.Message, "'완성'")
}

func TestAuthoringFinalize(t *testing.T) {
	ctx := context.Background()
	dc := DraftContext{Place: "Cafe", Situation: "order coffee"}
	raw := "```json\n{\"title\":\"Coffee\",\"title_ko\":\"커피\",\"stages\":[{\"stage\":1,\"name\":\"Order\",\"ai_opening\":\"Hi!\"}]}\n```"

	res, err := NewAuthoring(&stubClient{text: raw}, nil).Finalize(ctx, dc, nil, "")
	require.NoError(t, err)
	require.Equal(t, "Coffee", res.Scenario.Title)
	require.True(t, strings.HasPrefix(res.Scenario.ID, "custom_"))
	require.Equal(t, scenario.DifficultyBeginner, res.Scenario.Difficulty)
	require.Equal(t, "Cafe", res.Scenario.Place)

	res, err = NewAuthoring(&stubClient{text: "not json"}, nil).Finalize(ctx, dc, nil, "")
	require.NoError(t, err)
	require.Equal(t, "Cafe에서 order coffee", res.Scenario.Title)
	require.Len(t, res.Scenario.Stages, 3)
	require.Equal(t, "Main Request", res.Scenario.Stages[1].Name)
}

func TestAuthoringFinalizeNormalizesOrFallsBack(t *testing.T) {
	ctx := context.Background()
	dc := DraftContext{Place: "Hotel", Situation: "late check-in"}

	renumbered := `{"title":"","stages":[{"stage":4,"name":"Arrive","ai_opening":"\"Welcome!\""},{"stage":4,"name":"Key","ai_opening":"Here is your key."}]}`
	res, err := NewAuthoring(&stubClient{text: renumbered}, nil).Finalize(ctx, dc, nil, "My hotel")
	require.NoError(t, err)
	require.Equal(t, "My hotel", res.Scenario.Title)
	require.Equal(t, "Welcome!", res.Scenario.Stages[0].OpeningLine)
	require.Equal(t, []int{1, 2}, []int{res.Scenario.Stages[0].Ordinal, res.Scenario.Stages[1].Ordinal})

	noOpening := `{"title":"Hotel","stages":[{"stage":1,"name":"Arrive"}]}`
	res, err = NewAuthoring(&stubClient{text: noOpening}, nil).Finalize(ctx, dc, nil, "")
	require.NoError(t, err)
	require.Len(t, res.Scenario.Stages, 3)
	require.Equal(t, "Greeting", res.Scenario.Stages[0].Name)

	svc, _ := newService(t)
	for _, raw := range []string{renumbered, noOpening, `{"stages":[]}`} {
		res, err := NewAuthoring(&stubClient{text: raw}, nil).Finalize(ctx, dc, nil, "")
		require.NoError(t, err)
		published, err := svc.Publish(ctx, res.Scenario, "kim")
		require.NoError(t, err)
		_, err = svc.Load(ctx, published.ID)
		require.NoError(t, err)
	}
}

func ids(items []*Scenario) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
