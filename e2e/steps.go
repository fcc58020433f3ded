// Package e2e drives a running marketgate server through Gherkin scenarios.
package e2e

import (
	"github.com/cucumber/godog"

	"marketgate/e2e/steps/common"
	"marketgate/e2e/steps/gates"
	"marketgate/e2e/steps/markets"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register gate evaluation steps
	gates.RegisterSteps(ctx, tc)

	// Register market pack steps
	markets.RegisterSteps(ctx, tc)
}
