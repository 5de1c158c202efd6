package report_test

import (
	"fmt"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/report"
)

func ExamplePublicStatusCode() {
	for _, s := range []health.CheckStatus{health.StatusOK, health.StatusMajor, health.StatusOutage} {
		fmt.Println(s, report.PublicStatusCode(s), report.PrivateStatusCode(s))
	}
	// Output:
	// OK 200 200
	// MAJOR 200 512
	// OUTAGE 512 512
}
