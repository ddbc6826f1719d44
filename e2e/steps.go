package e2e

import (
	"github.com/cucumber/godog"

	"reunite/e2e/steps/cases"
	"reunite/e2e/steps/common"
	"reunite/e2e/steps/matching"
)

// RegisterSteps registers all step definitions from the modular step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	cases.RegisterSteps(ctx, tc)
	matching.RegisterSteps(ctx, tc)
}
