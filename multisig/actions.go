package multisig

import (
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/sysaction"
)

// SetOwnersAction builds the action descriptor a group proposes to change
// its own membership. nonce is the group's authority nonce.
func SetOwnersAction(group common.Address, nonce uint8, owners []common.Address, threshold uint64) (sysaction.Action, error) {
	data, err := sysaction.MakeSysAction(sysaction.ActionMultisigSetOwners, &sysaction.MultisigSetOwnersPayload{
		Group:     group,
		Owners:    owners,
		Threshold: threshold,
	})
	if err != nil {
		return sysaction.Action{}, err
	}
	authority := delegate.Seed{Group: group, Nonce: nonce}.Authority()
	return sysaction.Action{
		Program: params.SystemActionAddress,
		Accounts: []sysaction.AccountMeta{
			{Address: group, IsWritable: true},
			{Address: authority, IsSigner: true},
		},
		Data: data,
	}, nil
}
