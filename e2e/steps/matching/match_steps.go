package matching

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context the matching steps need.
type TestContext interface {
	AdminPOST(path string, body any) error
	AdminGET(path string) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	CaseID(role string) (string, error)
	SetMatchID(id string)
	MatchID() (string, error)
}

// RegisterSteps registers matching step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &matchSteps{tc: tc}

	ctx.Step(`^an admin generates matches for the "([^"]*)" case$`, steps.generateMatches)
	ctx.Step(`^an admin generates matches for all verified cases$`, steps.generateAll)
	ctx.Step(`^I save the first generated match$`, steps.saveFirstMatch)
	ctx.Step(`^the response should list (\d+) match(?:es)?$`, steps.responseShouldListMatches)
	ctx.Step(`^an admin confirms the match$`, steps.confirmMatch)
	ctx.Step(`^an admin rejects the match$`, steps.rejectMatch)
	ctx.Step(`^the match should have status "([^"]*)"$`, steps.matchShouldHaveStatus)
}

type matchSteps struct {
	tc TestContext
}

func (s *matchSteps) generateMatches(ctx context.Context, role string) error {
	id, err := s.tc.CaseID(role)
	if err != nil {
		return err
	}
	return s.tc.AdminPOST("/admin/cases/"+id+"/matches", nil)
}

func (s *matchSteps) generateAll(ctx context.Context) error {
	return s.tc.AdminPOST("/admin/matches/generate", nil)
}

func (s *matchSteps) matches() ([]any, error) {
	raw, err := s.tc.GetResponseField("matches")
	if err != nil {
		return nil, err
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("matches field is not a list")
	}
	return list, nil
}

func (s *matchSteps) saveFirstMatch(ctx context.Context) error {
	list, err := s.matches()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no matches in response")
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return fmt.Errorf("match entry is not an object")
	}
	id, ok := first["id"].(string)
	if !ok {
		return fmt.Errorf("match id missing")
	}
	s.tc.SetMatchID(id)
	return nil
}

func (s *matchSteps) responseShouldListMatches(ctx context.Context, count int) error {
	list, err := s.matches()
	if err != nil {
		return err
	}
	if len(list) != count {
		return fmt.Errorf("expected %d matches, got %d", count, len(list))
	}
	return nil
}

func (s *matchSteps) confirmMatch(ctx context.Context) error {
	return s.resolve("confirm")
}

func (s *matchSteps) rejectMatch(ctx context.Context) error {
	return s.resolve("reject")
}

func (s *matchSteps) resolve(action string) error {
	id, err := s.tc.MatchID()
	if err != nil {
		return err
	}
	return s.tc.AdminPOST("/admin/matches/"+id+"/"+action, nil)
}

func (s *matchSteps) matchShouldHaveStatus(ctx context.Context, status string) error {
	id, err := s.tc.MatchID()
	if err != nil {
		return err
	}
	if err := s.tc.AdminGET("/admin/matches/" + id); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got != status {
		return fmt.Errorf("expected match status %q, got %v", status, got)
	}
	return nil
}
