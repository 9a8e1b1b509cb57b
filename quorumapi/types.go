// Package quorumapi serves quorum state over HTTP and accepts requests from
// an authenticating front end.
//
// Reads are open. Submitting a request requires an HS256 bearer token signed
// with the shared secret; the token subject is taken as the authenticated
// sender of the request.
package quorumapi

import (
	"errors"
	"time"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/multisig"
	"github.com/tos-network/gquorum/sysaction"
)

var (
	ErrMissingSecret = errors.New("quorumapi: request submission requires a JWT secret")
	ErrBadSecret     = errors.New("quorumapi: invalid JWT secret")
)

// Config is the HTTP API configuration.
type Config struct {
	Addr           string
	CorsOrigins    []string `toml:",omitempty"`
	JWTSecretFile  string   `toml:",omitempty"`
	RequestTimeout time.Duration
}

// DefaultConfig serves on localhost without request submission.
var DefaultConfig = Config{
	Addr:           "127.0.0.1:9595",
	RequestTimeout: 5 * time.Second,
}

// GroupView is the JSON form of a group.
type GroupView struct {
	Address         common.Address `json:"address"`
	Name            string         `json:"name"`
	Threshold       uint64         `json:"threshold"`
	MembershipCount uint64         `json:"membershipCount"`
	MembershipEpoch uint32         `json:"membershipEpoch"`
	Nonce           uint8          `json:"nonce"`
	Authority       common.Address `json:"authority"`
	Proposals       uint64         `json:"proposals"`
	NextProposal    common.Address `json:"nextProposal"`
}

// ProposalView is the JSON form of a proposal.
type ProposalView struct {
	Address       common.Address   `json:"address"`
	Group         common.Address   `json:"group"`
	Proposer      common.Address   `json:"proposer"`
	Name          string           `json:"name"`
	Action        sysaction.Action `json:"action"`
	Approvals     int              `json:"approvals"`
	Threshold     uint64           `json:"threshold"`
	EpochSnapshot uint32           `json:"epochSnapshot"`
	Status        string           `json:"status"`
}

func newProposalView(addr common.Address, p *multisig.Proposal, g *multisig.Group) *ProposalView {
	return &ProposalView{
		Address:       addr,
		Group:         p.Group,
		Proposer:      p.Proposer,
		Name:          p.Name,
		Action:        p.Action,
		Approvals:     len(p.Approvals),
		Threshold:     g.Threshold,
		EpochSnapshot: p.EpochSnapshot,
		Status:        p.Status(g).String(),
	}
}

// MemberView answers a membership query.
type MemberView struct {
	Group  common.Address `json:"group"`
	Owner  common.Address `json:"owner"`
	Member bool           `json:"member"`
}

// BalanceView carries a decimal deposit balance.
type BalanceView struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}
