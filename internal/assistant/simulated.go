// Package assistant produces assistant replies and market-research findings.
//
// Simulated is a stand-in: it waits a fixed delay and returns canned text from
// canned.yaml. A real inference service only has to implement Responder and
// Researcher.
package assistant

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkd/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed canned.yaml
var cannedYAML []byte

// Responder answers a message an artist sent to the assistant.
type Responder interface {
	Reply(ctx context.Context, artistID, content string) (models.AssistantMessage, error)
}

// Researcher fills in the findings of a market-research report.
type Researcher interface {
	Research(ctx context.Context, report models.AssistantReport) (models.ReportFindings, error)
}

// Reply is one canned reply and the hints shown with it.
type Reply struct {
	Keywords           []string `yaml:"keywords"`
	Content            string   `yaml:"content"`
	SuggestedReply     bool     `yaml:"suggested_reply"`
	AppointmentRequest bool     `yaml:"appointment_request"`
	MarketResearch     bool     `yaml:"market_research"`
}

// Canned is the text the simulated assistant answers with.
type Canned struct {
	Reply struct {
		Default Reply   `yaml:"default"`
		Rules   []Reply `yaml:"rules"`
	} `yaml:"reply"`
	Report struct {
		Summary     string                `yaml:"summary"`
		Methodology string                `yaml:"methodology"`
		Confidence  string                `yaml:"confidence"`
		Sources     []models.ReportSource `yaml:"sources"`
	} `yaml:"report"`
}

// ParseCanned decodes canned assistant text.
func ParseCanned(raw []byte) (*Canned, error) {
	var c Canned
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse canned assistant text: %w", err)
	}
	if strings.TrimSpace(c.Reply.Default.Content) == "" {
		return nil, errors.New("canned assistant text has no default reply")
	}
	if strings.TrimSpace(c.Report.Summary) == "" {
		return nil, errors.New("canned assistant text has no report summary")
	}
	return &c, nil
}

// DefaultCanned returns the embedded canned text.
func DefaultCanned() *Canned {
	c, err := ParseCanned(cannedYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Simulated is the demo assistant.
type Simulated struct {
	canned      *Canned
	replyDelay  time.Duration
	reportDelay time.Duration
	now         func() time.Time
}

// NewSimulated returns a simulated assistant. A nil canned uses the embedded text.
func NewSimulated(canned *Canned, replyDelay, reportDelay time.Duration) *Simulated {
	if canned == nil {
		canned = DefaultCanned()
	}
	return &Simulated{
		canned:      canned,
		replyDelay:  replyDelay,
		reportDelay: reportDelay,
		now:         time.Now,
	}
}

// Reply waits the reply delay and returns a canned answer. The reply is never stored.
func (s *Simulated) Reply(ctx context.Context, _ string, content string) (models.AssistantMessage, error) {
	if err := sleep(ctx, s.replyDelay); err != nil {
		return models.AssistantMessage{}, err
	}

	r := s.pick(content)
	now := s.now().UTC()
	return models.AssistantMessage{
		ID:        fmt.Sprintf("assistant-%d", now.UnixMilli()),
		Content:   r.Content,
		Role:      models.RoleAssistant,
		Timestamp: now,
		Metadata: &models.AssistantMessageMeta{
			SuggestedReply:     r.SuggestedReply,
			AppointmentRequest: r.AppointmentRequest,
			MarketResearch:     r.MarketResearch,
		},
	}, nil
}

// Research waits the report delay and returns the canned findings.
func (s *Simulated) Research(ctx context.Context, _ models.AssistantReport) (models.ReportFindings, error) {
	if err := sleep(ctx, s.reportDelay); err != nil {
		return models.ReportFindings{}, err
	}
	rep := s.canned.Report
	sources := make([]models.ReportSource, len(rep.Sources))
	copy(sources, rep.Sources)
	return models.ReportFindings{
		Summary:     rep.Summary,
		Methodology: rep.Methodology,
		Sources:     sources,
		Confidence:  rep.Confidence,
	}, nil
}

func (s *Simulated) pick(content string) Reply {
	lower := strings.ToLower(content)
	for _, rule := range s.canned.Reply.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return rule
			}
		}
	}
	return s.canned.Reply.Default
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
