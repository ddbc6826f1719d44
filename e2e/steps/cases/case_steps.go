package cases

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context the case steps need.
type TestContext interface {
	POST(path string, body any) error
	AdminPOST(path string, body any) error
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	SaveCaseID(role string) error
	CaseID(role string) (string, error)
}

// RegisterSteps registers case lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &caseSteps{tc: tc}

	ctx.Step(`^I report a (missing|found) person "([^"]*)" aged (\d+) in "([^"]*)" as reporter "([^"]*)"$`, steps.reportPerson)
	ctx.Step(`^I save the case as "([^"]*)"$`, steps.saveCase)
	ctx.Step(`^an admin verifies the "([^"]*)" case$`, steps.verifyCase)
	ctx.Step(`^an admin rejects the "([^"]*)" case with reason "([^"]*)"$`, steps.rejectCase)
	ctx.Step(`^reporter "([^"]*)" cancels the "([^"]*)" case$`, steps.cancelCase)
	ctx.Step(`^I fetch the "([^"]*)" case$`, steps.fetchCase)
	ctx.Step(`^the "([^"]*)" case should have status "([^"]*)"$`, steps.caseShouldHaveStatus)
}

type caseSteps struct {
	tc TestContext
}

func (s *caseSteps) reportPerson(ctx context.Context, kind, name string, age int, city, reporterID string) error {
	return s.tc.POST("/cases", map[string]any{
		"kind":        kind,
		"full_name":   name,
		"age":         age,
		"gender":      "female",
		"city":        city,
		"reporter_id": reporterID,
	})
}

func (s *caseSteps) saveCase(ctx context.Context, role string) error {
	if s.tc.LastStatus() != 201 {
		return fmt.Errorf("cannot save case: last status %d", s.tc.LastStatus())
	}
	return s.tc.SaveCaseID(role)
}

func (s *caseSteps) verifyCase(ctx context.Context, role string) error {
	id, err := s.tc.CaseID(role)
	if err != nil {
		return err
	}
	return s.tc.AdminPOST("/admin/cases/"+id+"/verify", nil)
}

func (s *caseSteps) rejectCase(ctx context.Context, role, reason string) error {
	id, err := s.tc.CaseID(role)
	if err != nil {
		return err
	}
	return s.tc.AdminPOST("/admin/cases/"+id+"/reject", map[string]string{"reason": reason})
}

func (s *caseSteps) cancelCase(ctx context.Context, reporterID, role string) error {
	id, err := s.tc.CaseID(role)
	if err != nil {
		return err
	}
	return s.tc.POST("/cases/"+id+"/cancel", map[string]string{"reporter_id": reporterID})
}

func (s *caseSteps) fetchCase(ctx context.Context, role string) error {
	id, err := s.tc.CaseID(role)
	if err != nil {
		return err
	}
	return s.tc.GET("/cases/" + id)
}

func (s *caseSteps) caseShouldHaveStatus(ctx context.Context, role, status string) error {
	if err := s.fetchCase(ctx, role); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	if got != status {
		return fmt.Errorf("expected %s case status %q, got %v", role, status, got)
	}
	return nil
}
