// Copyright 2024 The gtos Authors
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/tos-network/gquorum/common"

// Well-known program addresses.
var (
	// SystemActionAddress is the program that decodes a JSON SysAction from the
	// action data and dispatches it to the registered handlers. Delegated
	// actions targeting it re-enter the same dispatcher under the delegated
	// authority.
	SystemActionAddress = common.HexToAddress("0x0000000000000000000000000000000054534F31") // "TOS1"

	// LedgerAddress is the program that moves deposit balances.
	LedgerAddress = common.HexToAddress("0x0000000000000000000000000000000054534F34") // "TOS4"
)

// Record sizing. Sizes drive the deposit charged by the record store.
const (
	// MembershipRecordSize covers the encoded group and owner addresses.
	MembershipRecordSize uint64 = 160

	// GroupRecordBaseSize is the fixed part of a group record. Names are
	// reserved at NameByteSize per byte on top of it.
	GroupRecordBaseSize uint64 = 192

	// ProposalRecordBaseSize is the fixed part of a proposal record.
	ProposalRecordBaseSize uint64 = 512

	// AccountMetaSize is the encoded size reserved per action account.
	AccountMetaSize uint64 = 128

	// ApprovalSize is the encoded size reserved per approval fingerprint.
	ApprovalSize uint64 = 72

	// NameByteSize is reserved per display-name byte (worst-case JSON escape).
	NameByteSize uint64 = 6
)

const (
	// DefaultByteDeposit is the deposit charged per allocated record byte.
	DefaultByteDeposit uint64 = 10

	// MaxInvokeDepth bounds nested delegated invocations.
	MaxInvokeDepth = 4

	// MaxGroupNameLen caps the display name of a group or proposal.
	MaxGroupNameLen = 64
)
