package markets

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers market pack lookup steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &marketSteps{tc: tc}

	ctx.Step(`^I look up the market pack for "([^"]*)"$`, steps.lookUpPack)
	ctx.Step(`^I list the supported markets$`, steps.listMarkets)
	ctx.Step(`^the default pack should have been applied$`, steps.defaultApplied)
	ctx.Step(`^the market's own pack should have been applied$`, steps.ownPackApplied)
	ctx.Step(`^the supported markets should include "([^"]*)"$`, steps.marketsInclude)
}

type marketSteps struct {
	tc TestContext
}

func (s *marketSteps) lookUpPack(ctx context.Context, market string) error {
	return s.tc.GET("/compliance/markets/" + market)
}

func (s *marketSteps) listMarkets(ctx context.Context) error {
	return s.tc.GET("/compliance/markets")
}

func (s *marketSteps) defaultApplied(ctx context.Context) error {
	return s.expectDefault(true)
}

func (s *marketSteps) ownPackApplied(ctx context.Context) error {
	return s.expectDefault(false)
}

func (s *marketSteps) expectDefault(want bool) error {
	v, err := s.tc.GetResponseField("default_applied")
	if err != nil {
		return err
	}
	if got, _ := v.(bool); got != want {
		return fmt.Errorf("expected default_applied=%t, got %v", want, v)
	}
	return nil
}

func (s *marketSteps) marketsInclude(ctx context.Context, market string) error {
	v, err := s.tc.GetResponseField("markets")
	if err != nil {
		return err
	}
	list, _ := v.([]interface{})
	for _, m := range list {
		if m == market {
			return nil
		}
	}
	return fmt.Errorf("market %s not in %v", market, list)
}
