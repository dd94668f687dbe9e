package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/wolfram"
)

const solveMathToolName = "solve_math_problem"

// MathSolver is the subset of the Wolfram Alpha client the tutor needs.
type MathSolver interface {
	Enabled() bool
	FetchWithSteps(ctx context.Context, question string) (*wolfram.Solution, error)
}

var solveMathTool = llm.Tool{
	Name: solveMathToolName,
	Description: "Solve mathematical problems including algebra, calculus, derivatives, integrals, and equations. " +
		"Returns step-by-step solutions with explanations.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"problem": map[string]any{
				"type": "string",
				"description": "The mathematical problem to solve. Examples: 'solve x^2 - 5x + 6 = 0', " +
					"'derivative of x^3 + 2x^2', 'integrate x^2 dx', 'simplify sqrt(50)'",
			},
		},
		"required": []string{"problem"},
	},
}

// MathToolResult is what the model sees as the tool message content.
type MathToolResult struct {
	Success             bool   `json:"success"`
	Problem             string `json:"problem"`
	Answer              string `json:"answer,omitempty"`
	Steps               string `json:"steps,omitempty"`
	InputInterpretation string `json:"input_interpretation,omitempty"`
	SolutionSummary     string `json:"solution_summary,omitempty"`
	Error               string `json:"error,omitempty"`
}

// SolveMath answers from the built-in worked solutions when Wolfram Alpha is
// not configured, and from Wolfram Alpha otherwise.
func SolveMath(ctx context.Context, solver MathSolver, problem string) MathToolResult {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return MathToolResult{Error: "problem is required"}
	}

	var sol *wolfram.Solution
	if solver != nil && solver.Enabled() {
		var err error
		sol, err = solver.FetchWithSteps(ctx, problem)
		if err != nil {
			log.Printf("Wolfram Alpha error for %q: %v", problem, err)
			if sol == nil || sol.Steps == "" {
				return MathToolResult{Problem: problem, Error: err.Error()}
			}
		}
	} else {
		var ok bool
		if sol, ok = wolfram.LookupWorked(problem); !ok {
			return MathToolResult{Problem: problem, Error: "Wolfram Alpha is not configured and no worked solution is available"}
		}
	}

	steps := firstNonEmpty(sol.Steps, sol.HowToSolve)
	summary := "Steps:\n" + steps
	if sol.Answer != "" {
		summary = fmt.Sprintf("Problem: %s\n\nSolution Steps:\n%s\n\nFinal Answer: %s", problem, steps, sol.Answer)
	}
	return MathToolResult{
		Success:             true,
		Problem:             problem,
		Answer:              sol.Answer,
		Steps:               steps,
		InputInterpretation: sol.InputInterpretation,
		SolutionSummary:     summary,
	}
}

func (s *ChatService) runTool(ctx context.Context, call llm.ToolCall) string {
	var result any
	switch call.Name {
	case solveMathToolName:
		var args struct {
			Problem string `json:"problem"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			result = MathToolResult{Error: "invalid arguments: " + err.Error()}
			break
		}
		if s.debug {
			log.Printf("Executing tool %s with problem %q", call.Name, args.Problem)
		}
		result = SolveMath(ctx, s.solver, args.Problem)
	default:
		result = map[string]any{"success": false, "error": "unknown tool " + call.Name}
	}

	out, err := json.Marshal(result)
	if err != nil {
		return `{"success":false,"error":"failed to encode tool result"}`
	}
	return string(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
