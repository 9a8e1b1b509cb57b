package main

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/reexec"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/multisig"
)

func TestMain(m *testing.M) {
	// Run the app if we've been exec'd as "quorumctl-test" in runQuorumctl.
	reexec.Register("quorumctl-test", func() {
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	})
	// check if we have been reexec'd
	if reexec.Init() {
		return
	}
	os.Exit(m.Run())
}

// runQuorumctl runs the tool in a child process against datadir.
func runQuorumctl(t *testing.T, datadir string, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"quorumctl-test", "--datadir", datadir, "--verbosity", "error"}, args...)
	cmd := reexec.Command(full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%v: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

func mustRun(t *testing.T, datadir string, args ...string) string {
	t.Helper()
	out, err := runQuorumctl(t, datadir, args...)
	if err != nil {
		t.Fatalf("quorumctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

var addressLine = regexp.MustCompile(`(\w+):\s+(0x[0-9a-f]{64})`)

// addressOf extracts the address printed under label.
func addressOf(t *testing.T, out, label string) string {
	t.Helper()
	for _, m := range addressLine.FindAllStringSubmatch(out, -1) {
		if m[1] == label {
			return m[2]
		}
	}
	t.Fatalf("no %s address in output:\n%s", label, out)
	return ""
}

func TestTransferProposalLifecycle(t *testing.T) {
	datadir := t.TempDir()
	var (
		a     = common.Address{0x0a}.Hex()
		b     = common.Address{0x0b}.Hex()
		c     = common.Address{0x0c}.Hex()
		d     = common.Address{0x0d}.Hex()
		salt  = common.Hash{0x60}
		group = multisig.GroupAddress(common.Address{0x0a}, salt).Hex()
	)
	mustRun(t, datadir, "fund", "--to", a, "--amount", "100000000")
	mustRun(t, datadir, "fund", "--to", b, "--amount", "100000000")

	out := mustRun(t, datadir, "create", "--from", a, "--salt", salt.Hex(), "--name", "ops",
		"--owners", strings.Join([]string{a, b, c}, ","), "--threshold", "2", "--nonce", "4")
	if got := addressOf(t, out, "Group"); got != group {
		t.Fatalf("group address: want %s, got %s", group, got)
	}
	authority := addressOf(t, out, "Authority")
	mustRun(t, datadir, "fund", "--to", authority, "--amount", "1000")

	out = mustRun(t, datadir, "propose-transfer", "--from", a, "--group", group, "--to", d, "--amount", "5")
	proposal := addressOf(t, out, "Proposal")

	if _, err := runQuorumctl(t, datadir, "execute", "--from", b, "--group", group, "--proposal", proposal); err == nil ||
		!strings.Contains(err.Error(), "not enough approvals") {
		t.Fatalf("execute below threshold: %v", err)
	}
	mustRun(t, datadir, "approve", "--from", b, "--group", group, "--proposal", proposal)
	mustRun(t, datadir, "execute", "--from", c, "--group", group, "--proposal", proposal)

	if out := mustRun(t, datadir, "inspect", "balance", d); strings.TrimSpace(out) != "5" {
		t.Fatalf("recipient balance: %q", out)
	}
	out = mustRun(t, datadir, "inspect", "proposal", "--owners", strings.Join([]string{a, b, c}, ","), proposal)
	if !strings.Contains(out, "executed") {
		t.Fatalf("proposal status missing:\n%s", out)
	}
	if out := mustRun(t, datadir, "inspect", "member", group, d); !strings.Contains(out, "not an owner") {
		t.Fatalf("non-member check:\n%s", out)
	}
	if out := mustRun(t, datadir, "inspect", "member", group, c); strings.Contains(out, "not an owner") {
		t.Fatalf("member check:\n%s", out)
	}
	if _, err := runQuorumctl(t, datadir, "approve", "--from", c, "--group", group, "--proposal", proposal); err == nil ||
		!strings.Contains(err.Error(), "already executed") {
		t.Fatalf("late approve: %v", err)
	}
}

func TestParseAccounts(t *testing.T) {
	a := common.Address{0x01}
	accounts, err := parseAccounts(a.Hex() + ":s:w, " + a.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(accounts) != 2 || !accounts[0].IsSigner || !accounts[0].IsWritable || accounts[1].IsSigner || accounts[1].IsWritable {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
	if _, err := parseAccounts(a.Hex() + ":x"); err == nil {
		t.Fatal("unknown modifier accepted")
	}
}
