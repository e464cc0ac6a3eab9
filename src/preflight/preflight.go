// Package preflight verifies a release run can succeed before the first
// artifact is fetched: required credentials are present in the environment
// and the artifact store and registry endpoints resolve. Failing here keeps a
// doomed run from leaving half a directory tree behind.
package preflight

import (
	"fmt"
	"os"
	"time"

	"github.com/miekg/dns"
)

// Check is the set of preconditions for one run.
type Check struct {
	// Env lists environment variables that must be non-empty.
	Env []string
	// Hosts lists endpoints that must resolve.
	Hosts []string
	// Lookup overrides DNS resolution, for tests. Nil means query the
	// system resolver.
	Lookup func(host string) error
}

// Run returns the first failed precondition. Any error is fatal for the run;
// nothing is retried.
func (c Check) Run() error {
	for _, key := range c.Env {
		if os.Getenv(key) == "" {
			return fmt.Errorf("preflight: credential %s is not set", key)
		}
	}
	lookup := c.Lookup
	if lookup == nil {
		lookup = resolveHost
	}
	for _, host := range c.Hosts {
		if err := lookup(host); err != nil {
			return fmt.Errorf("preflight: %s does not resolve: %w", host, err)
		}
	}
	return nil
}

// resolveHost asks the system resolver for an A record, falling back to
// AAAA for v6-only endpoints.
func resolveHost(host string) error {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return err
	}
	client := new(dns.Client)
	client.Timeout = 5 * time.Second

	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		for _, server := range conf.Servers {
			in, _, err := client.Exchange(m, server+":"+conf.Port)
			if err != nil {
				lastErr = err
				continue
			}
			if in.Rcode == dns.RcodeSuccess && len(in.Answer) > 0 {
				return nil
			}
			lastErr = fmt.Errorf("rcode %s, %d answers", dns.RcodeToString[in.Rcode], len(in.Answer))
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no nameservers configured")
	}
	return lastErr
}
