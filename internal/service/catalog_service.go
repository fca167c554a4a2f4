package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

// Tab is the bucket a quiz is listed under on the student page.
type Tab string

const (
	TabAvailable Tab = "available"
	TabSubmitted Tab = "submitted"
	TabClosed    Tab = "closed"
)

// OtherClassName groups quizzes that carry no class.
const OtherClassName = "Other"

// StudentQuizLister fetches the quizzes visible to the caller.
type StudentQuizLister interface {
	ListStudentQuizzes(ctx context.Context, token string) ([]model.StudentQuiz, error)
}

// CatalogEntry is one classified quiz. StartAt/EndAt carry the corrected
// window; StartDate/EndDate are rewritten to match.
type CatalogEntry struct {
	model.StudentQuiz
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
	Tab     Tab        `json:"tab"`
}

// ClassGroup holds one class's quizzes per tab.
type ClassGroup struct {
	ClassName string         `json:"className"`
	Available []CatalogEntry `json:"available"`
	Submitted []CatalogEntry `json:"submitted"`
	Closed    []CatalogEntry `json:"closed"`
}

// Catalog is the classified student quiz list.
type Catalog struct {
	Classes []ClassGroup `json:"classes"`
	Counts  map[Tab]int  `json:"counts"`
}

// CatalogService loads and classifies the student quiz list.
type CatalogService struct {
	lister     StudentQuizLister
	correction time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewCatalogService creates a CatalogService. correction is added to every
// quiz window before classification; zero disables it.
func NewCatalogService(lister StudentQuizLister, correction time.Duration, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		lister:     lister,
		correction: correction,
		now:        time.Now,
		log:        log.With().Str("component", "catalog_service").Logger(),
	}
}

// Load fetches the caller's quizzes and classifies them against now.
func (s *CatalogService) Load(ctx context.Context, token string) (*Catalog, error) {
	quizzes, err := s.lister.ListStudentQuizzes(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list student quizzes: %w", err)
	}

	catalog := Classify(quizzes, s.now(), s.correction)
	s.log.Debug().
		Int("available", catalog.Counts[TabAvailable]).
		Int("submitted", catalog.Counts[TabSubmitted]).
		Int("closed", catalog.Counts[TabClosed]).
		Msg("Catalog loaded")
	return catalog, nil
}

// Classify buckets quizzes by class and tab. A submitted quiz is always
// listed as submitted; a quiz with no usable window or whose end has passed
// is closed; everything else is available.
func Classify(quizzes []model.StudentQuiz, now time.Time, correction time.Duration) *Catalog {
	groups := make(map[string]*ClassGroup)
	counts := map[Tab]int{TabAvailable: 0, TabSubmitted: 0, TabClosed: 0}

	for _, q := range quizzes {
		entry := CatalogEntry{StudentQuiz: q}
		entry.StartAt = correctTimestamp(&entry.StudentQuiz.StartDate, correction)
		entry.EndAt = correctTimestamp(&entry.StudentQuiz.EndDate, correction)

		switch {
		case q.Submitted:
			entry.Tab = TabSubmitted
		case entry.StartAt == nil || entry.EndAt == nil:
			entry.Tab = TabClosed
		case entry.EndAt.Before(now):
			entry.Tab = TabClosed
		default:
			entry.Tab = TabAvailable
		}

		name := q.ClassName
		if name == "" {
			name = OtherClassName
		}
		g, ok := groups[name]
		if !ok {
			g = &ClassGroup{
				ClassName: name,
				Available: []CatalogEntry{},
				Submitted: []CatalogEntry{},
				Closed:    []CatalogEntry{},
			}
			groups[name] = g
		}

		switch entry.Tab {
		case TabSubmitted:
			g.Submitted = append(g.Submitted, entry)
		case TabClosed:
			g.Closed = append(g.Closed, entry)
		default:
			g.Available = append(g.Available, entry)
		}
		counts[entry.Tab]++
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	classes := make([]ClassGroup, 0, len(names))
	for _, name := range names {
		classes = append(classes, *groups[name])
	}
	return &Catalog{Classes: classes, Counts: counts}
}

// correctTimestamp parses raw, shifts it by correction and rewrites raw in
// RFC 3339. Unparseable values are cleared and reported as nil.
func correctTimestamp(raw *string, correction time.Duration) *time.Time {
	t, ok := model.ParseTimestamp(*raw)
	if !ok {
		*raw = ""
		return nil
	}
	t = t.Add(correction).UTC()
	*raw = t.Format(time.RFC3339)
	return &t
}

// Tab returns the group's entries for tab.
func (g *ClassGroup) Tab(tab Tab) []CatalogEntry {
	switch tab {
	case TabSubmitted:
		return g.Submitted
	case TabClosed:
		return g.Closed
	default:
		return g.Available
	}
}
