package sol

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/yimingwow/solarb/pkg"
)

func instructionError(code interface{}) interface{} {
	return map[string]interface{}{
		"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": code}},
	}
}

func TestClassifySimulation(t *testing.T) {
	tests := []struct {
		name   string
		simErr interface{}
		logs   []string
		want   pkg.SimulationCode
	}{
		{"zero tradable", instructionError(float64(6035)), nil, pkg.SimulationZeroTradableAmount},
		{"below minimum", instructionError(float64(6036)), nil, pkg.SimulationAmountOutBelowMinimum},
		{"above maximum", instructionError(json.Number("6037")), nil, pkg.SimulationAmountInAboveMaximum},
		{"tick sequence", instructionError(float64(6038)), nil, pkg.SimulationInvalidTickArraySequence},
		{"token insufficient funds", instructionError(float64(1)), nil, pkg.SimulationInsufficientFunds},
		{"hex in logs", "InstructionError", []string{
			"Program whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc failed: custom program error: 0x1793",
		}, pkg.SimulationZeroTradableAmount},
		{"lamports in logs", map[string]interface{}{}, []string{"Transfer: insufficient lamports 10, need 20"}, pkg.SimulationInsufficientFunds},
		{"unrelated custom", instructionError(float64(6000)), []string{"Program log: hello"}, pkg.SimulationUnknown},
		{"nil", nil, nil, pkg.SimulationUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySimulation(tt.simErr, tt.logs); got != tt.want {
				t.Fatalf("classifySimulation = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWithComputeBudget(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	transfer := system.NewTransferInstruction(1, payer, payer).Build()

	c := &Client{}
	got, err := c.withComputeBudget([]solana.Instruction{transfer})
	if err != nil {
		t.Fatalf("withComputeBudget: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("no budget configured: got %d instructions", len(got))
	}

	c = &Client{computeUnitLimit: 400_000, computeUnitPrice: 5_000}
	got, err = c.withComputeBudget([]solana.Instruction{transfer})
	if err != nil {
		t.Fatalf("withComputeBudget: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d instructions, want 3", len(got))
	}
	for i := 0; i < 2; i++ {
		if !got[i].ProgramID().Equals(computebudget.ProgramID) {
			t.Fatalf("instruction %d program = %s", i, got[i].ProgramID())
		}
	}
	data, err := got[0].Data()
	if err != nil {
		t.Fatalf("limit data: %v", err)
	}
	if len(data) != 5 || binary.LittleEndian.Uint32(data[1:]) != 400_000 {
		t.Fatalf("limit data = %v", data)
	}
	if got[2] != transfer {
		t.Fatalf("caller instruction moved")
	}
}

func TestDecodeMintInfo(t *testing.T) {
	data := make([]byte, mintSize+20)
	binary.LittleEndian.PutUint64(data[36:], 1_000_000)
	data[44] = 6
	data[45] = 1

	info, err := decodeMintInfo(solana.TokenProgramID, data)
	if err != nil {
		t.Fatalf("decodeMintInfo: %v", err)
	}
	if info.Decimals != 6 || !info.TokenProgram.Equals(solana.TokenProgramID) {
		t.Fatalf("info = %+v", info)
	}

	if _, err := decodeMintInfo(solana.TokenProgramID, data[:40]); err == nil {
		t.Fatalf("short mint should fail")
	}
	data[45] = 0
	if _, err := decodeMintInfo(solana.TokenProgramID, data); err == nil {
		t.Fatalf("uninitialized mint should fail")
	}
}

func TestDecodeClock(t *testing.T) {
	data := make([]byte, ClockAccountDataSize)
	binary.LittleEndian.PutUint64(data[0:], 250_000_000)
	binary.LittleEndian.PutUint64(data[16:], 580)
	binary.LittleEndian.PutUint64(data[32:], 1_760_000_000)

	clock, err := decodeClock(data)
	if err != nil {
		t.Fatalf("decodeClock: %v", err)
	}
	if clock.Slot != 250_000_000 || clock.Epoch != 580 || clock.UnixTimestamp != 1_760_000_000 {
		t.Fatalf("clock = %+v", clock)
	}
	if _, err := decodeClock(data[:39]); err == nil {
		t.Fatalf("short clock should fail")
	}
}

func TestWrapSolInstructions(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	instrs, err := WrapSolInstructions(owner, 5_000, true)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if len(instrs) != 3 {
		t.Fatalf("got %d instructions, want 3", len(instrs))
	}
	instrs, err = WrapSolInstructions(owner, 5_000, false)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if len(instrs) != 2 || !instrs[0].ProgramID().Equals(solana.SystemProgramID) {
		t.Fatalf("existing account wrap should start with a transfer")
	}
	unwrap, err := UnwrapSolInstructions(owner)
	if err != nil || len(unwrap) != 1 || !unwrap[0].ProgramID().Equals(solana.TokenProgramID) {
		t.Fatalf("unwrap = %v, %v", unwrap, err)
	}
}
