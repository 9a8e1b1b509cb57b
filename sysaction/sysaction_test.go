package sysaction

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/tosdb/memorydb"
)

func newTestStore(t *testing.T) *record.Store {
	t.Helper()
	s, err := record.New(memorydb.New(), record.Config{ByteDeposit: 1})
	if err != nil {
		t.Fatalf("failed to create record store: %v", err)
	}
	return s
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not json"), []byte(`{"payload":{}}`)} {
		if _, err := Decode(data); !errors.Is(err, ErrInvalidSysAction) {
			t.Errorf("Decode(%q): want ErrInvalidSysAction, got %v", data, err)
		}
	}
}

func TestMakeSysActionRoundTrip(t *testing.T) {
	group := common.HexToAddress("0x0a")
	data, err := MakeSysAction(ActionMultisigApprove, MultisigProposalPayload{
		Group:    group,
		Proposal: common.HexToAddress("0x0b"),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sa, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sa.Action != ActionMultisigApprove {
		t.Fatalf("action: have %q", sa.Action)
	}
	var p MultisigProposalPayload
	if err := DecodePayload(sa, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Group != group {
		t.Fatalf("group: have %s want %s", p.Group, group)
	}
}

func TestDecodePayloadRejectsUnknownFields(t *testing.T) {
	sa := &SysAction{Action: ActionMultisigSetOwners, Payload: []byte(`{"group":"0x` +
		"00000000000000000000000000000000000000000000000000000000000000aa" + `","threshhold":1}`)}
	var p MultisigSetOwnersPayload
	if err := DecodePayload(sa, &p); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

// failingHandler writes to the store and then fails.
type failingHandler struct {
	addr common.Address
}

func (h *failingHandler) CanHandle(kind ActionKind) bool { return kind == ActionLedgerTransfer }

func (h *failingHandler) Handle(ctx *Context, sa *SysAction) error {
	if err := ctx.Store.AddBalance(h.addr, uint256.NewInt(7)); err != nil {
		return err
	}
	return errors.New("boom")
}

func TestDispatchRevertsFailedHandler(t *testing.T) {
	st := newTestStore(t)
	from := common.HexToAddress("0x01")
	h := &failingHandler{addr: from}
	r := &Registry{}
	r.Register(h)

	err := r.Dispatch(NewContext(from, st), &SysAction{Action: ActionLedgerTransfer})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("want boom, got %v", err)
	}
	balance, err := st.Balance(from)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("failed handler left balance %s", balance.ToBig())
	}
	if err := r.Dispatch(NewContext(from, st), &SysAction{Action: ActionMultisigCreate}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("want ErrUnknownAction, got %v", err)
	}
}

func TestContextSignersAndWritable(t *testing.T) {
	from := common.HexToAddress("0x01")
	top := NewContext(from, nil)
	if !top.IsSigner(from) || top.IsSigner(common.HexToAddress("0x02")) {
		t.Fatalf("top-level signers wrong: %v", top.Signers)
	}
	if !top.IsWritable(common.HexToAddress("0x09")) {
		t.Fatalf("top-level context must allow writes")
	}

	group := common.HexToAddress("0x03")
	delegated := &Context{
		From:      from,
		Delegated: true,
		Accounts: []AccountMeta{
			{Address: group, IsWritable: true},
			{Address: common.HexToAddress("0x04")},
		},
	}
	if !delegated.IsWritable(group) || delegated.IsWritable(common.HexToAddress("0x04")) {
		t.Fatalf("delegated writability wrong")
	}
}

func TestActionCopyIsDeep(t *testing.T) {
	a := Action{
		Program:  common.HexToAddress("0x05"),
		Accounts: []AccountMeta{{Address: common.HexToAddress("0x06")}},
		Data:     []byte{1, 2, 3},
	}
	cpy := a.Copy()
	cpy.Accounts[0].IsSigner = true
	cpy.Data[0] = 9
	if a.Accounts[0].IsSigner || a.Data[0] != 1 {
		t.Fatalf("copy shares memory with original")
	}
}

func TestDecodeRejectsTrailingAndOversized(t *testing.T) {
	valid := []byte(`{"action":"LEDGER_TRANSFER"}`)
	if _, err := Decode(valid); err != nil {
		t.Fatalf("valid envelope: %v", err)
	}
	for name, data := range map[string][]byte{
		"trailing":  append(append([]byte{}, valid...), []byte(`{"action":"X"}`)...),
		"unknown":   []byte(`{"action":"LEDGER_TRANSFER","extra":1}`),
		"oversized": append([]byte(`{"action":"LEDGER_TRANSFER","payload":"`), make([]byte, MaxDataSize)...),
	} {
		if _, err := Decode(data); !errors.Is(err, ErrInvalidSysAction) {
			t.Errorf("%s: want ErrInvalidSysAction, got %v", name, err)
		}
	}
}
