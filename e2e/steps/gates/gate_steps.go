package gates

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers gate evaluation and decision retrieval steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &gateSteps{tc: tc}

	ctx.Step(`^I evaluate the "([^"]*)" gate for "([^"]*)" in market "([^"]*)" with:$`, steps.evaluateGate)
	ctx.Step(`^I run a dry run in market "([^"]*)" with checks:$`, steps.dryRun)
	ctx.Step(`^the gate should allow the transition$`, steps.shouldAllow)
	ctx.Step(`^the gate should block the transition$`, steps.shouldBlock)
	ctx.Step(`^the decision should include violation "([^"]*)" with severity "([^"]*)"$`, steps.shouldIncludeViolation)
	ctx.Step(`^the decision should recommend fix "([^"]*)"$`, steps.shouldRecommendFix)
	ctx.Step(`^I fetch the filed decision$`, steps.fetchFiledDecision)
	ctx.Step(`^I list decisions for "([^"]*)" "([^"]*)"$`, steps.listDecisions)
	ctx.Step(`^the entity should have at least (\d+) decisions?$`, steps.entityShouldHaveDecisions)
}

type gateSteps struct {
	tc TestContext
}

func (s *gateSteps) evaluateGate(ctx context.Context, gate, entityID, market string, snapshot *godog.DocString) error {
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(snapshot.Content), &body); err != nil {
		return fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	if err := s.tc.POST("/compliance/gates/"+gate, map[string]interface{}{
		"entity_id": entityID,
		"market_id": market,
		"snapshot":  body,
	}); err != nil {
		return err
	}
	if decisionID, err := s.tc.GetResponseField("decision_id"); err == nil {
		s.tc.Save("decision_id", fmt.Sprint(decisionID))
	}
	return nil
}

func (s *gateSteps) dryRun(ctx context.Context, market string, checks *godog.DocString) error {
	var list []interface{}
	if err := json.Unmarshal([]byte(checks.Content), &list); err != nil {
		return fmt.Errorf("checks are not a JSON array: %w", err)
	}
	return s.tc.POST("/compliance/checks", map[string]interface{}{
		"market_id": market,
		"checks":    list,
	})
}

// result returns the gate result, which is the body of a dry run and the
// "result" field of a filed evaluation.
func (s *gateSteps) result() (map[string]interface{}, error) {
	if v, err := s.tc.GetResponseField("result"); err == nil {
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
	}
	allowed, err := s.tc.GetResponseField("allowed")
	if err != nil {
		return nil, err
	}
	decision, err := s.tc.GetResponseField("decision")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"allowed": allowed, "decision": decision}, nil
}

func (s *gateSteps) shouldAllow(ctx context.Context) error {
	return s.expectAllowed(true)
}

func (s *gateSteps) shouldBlock(ctx context.Context) error {
	return s.expectAllowed(false)
}

func (s *gateSteps) expectAllowed(want bool) error {
	r, err := s.result()
	if err != nil {
		return err
	}
	if got, _ := r["allowed"].(bool); got != want {
		return fmt.Errorf("expected allowed=%t, got %v", want, r["allowed"])
	}
	return nil
}

func (s *gateSteps) decisionList(field string) ([]interface{}, error) {
	r, err := s.result()
	if err != nil {
		return nil, err
	}
	decision, ok := r["decision"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("result has no decision")
	}
	list, _ := decision[field].([]interface{})
	return list, nil
}

func (s *gateSteps) shouldIncludeViolation(ctx context.Context, code, severity string) error {
	violations, err := s.decisionList("violations")
	if err != nil {
		return err
	}
	for _, v := range violations {
		m, _ := v.(map[string]interface{})
		if m["code"] == code && m["severity"] == severity {
			return nil
		}
	}
	return fmt.Errorf("violation %s (%s) not found in %v", code, severity, violations)
}

func (s *gateSteps) shouldRecommendFix(ctx context.Context, code string) error {
	fixes, err := s.decisionList("recommended_fixes")
	if err != nil {
		return err
	}
	for _, f := range fixes {
		if m, _ := f.(map[string]interface{}); m["code"] == code {
			return nil
		}
	}
	return fmt.Errorf("fix %s not found in %v", code, fixes)
}

func (s *gateSteps) fetchFiledDecision(ctx context.Context) error {
	decisionID := s.tc.Saved("decision_id")
	if decisionID == "" {
		return fmt.Errorf("no decision was filed in this scenario")
	}
	return s.tc.GET("/compliance/decisions/" + decisionID)
}

func (s *gateSteps) listDecisions(ctx context.Context, entityType, entityID string) error {
	return s.tc.GET(fmt.Sprintf("/compliance/entities/%s/%s/decisions", entityType, entityID))
}

func (s *gateSteps) entityShouldHaveDecisions(ctx context.Context, n int) error {
	v, err := s.tc.GetResponseField("decisions")
	if err != nil {
		return err
	}
	list, _ := v.([]interface{})
	if len(list) < n {
		return fmt.Errorf("expected at least %d decisions, got %d", n, len(list))
	}
	return nil
}
