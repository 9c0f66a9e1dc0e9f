package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/teslashibe/snapsolve/pkg/solver"
	"github.com/teslashibe/snapsolve/pkg/web"
)

func TestFormatState(t *testing.T) {
	tests := []struct {
		name  string
		state solver.State
		want  string
	}{
		{"idle", solver.State{}, "[idle] muted=false"},
		{"recording muted", solver.State{Recording: true, Muted: true}, "[recording] muted=true"},
		{"error", solver.State{ErrorText: solver.MsgCameraUnavailable}, "[error] muted=false error=" + solver.MsgCameraUnavailable},
		{"solution", solver.State{Recording: true, SolutionText: "x = 2"}, "[recording] muted=false\nx = 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := web.StateMessage{State: tt.state, Phase: tt.state.Phase()}
			if got := formatState(msg); got != tt.want {
				t.Errorf("formatState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := versionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "snapsolve ") {
		t.Errorf("output = %q", out.String())
	}
}
