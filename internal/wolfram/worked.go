package wolfram

import "strings"

// PracticeQuestions are the algebra and calculus problems that ship with
// hand-written explanations, in teaching order.
var PracticeQuestions = []string{
	"solve 2x + 5 = 15",
	"solve 3(x - 4) = 2x + 7",
	"solve 2x/3 + 1 = 5",
	"solve x^2 - 5x + 6 = 0",
	"solve x^2 - 4 = 0",
	"factor x^2 - 9",
	"expand (x + 3)(x - 2)",
	"simplify (2x^2 + 4x)/(2x)",
	"simplify sqrt(50)",
	"derivative of x^3 + 2x^2",
	"derivative of sin(x)",
	"derivative of e^(2x)",
	"integrate x^2 dx",
	"integrate sin(x) dx",
	"integrate 1/(1+x^2) dx",
}

// workedSolutions hold plain-English steps that show the arithmetic at
// each stage. They take precedence over Wolfram's own step output.
var workedSolutions = map[string]string{
	"solve 2x + 5 = 15": `Step 1: Subtract 5 from both sides to isolate the term with x.
   2x + 5 - 5 = 15 - 5
   2x = 10

Step 2: Divide both sides by 2 to solve for x.
   2x ÷ 2 = 10 ÷ 2
   x = 5`,

	"solve 3(x - 4) = 2x + 7": `Step 1: Distribute the 3 on the left side.
   3(x - 4) = 3x - 12
   So: 3x - 12 = 2x + 7

Step 2: Subtract 2x from both sides to get x terms on one side.
   3x - 2x - 12 = 2x - 2x + 7
   x - 12 = 7

Step 3: Add 12 to both sides to solve for x.
   x - 12 + 12 = 7 + 12
   x = 19`,

	"solve 2x/3 + 1 = 5": `Step 1: Subtract 1 from both sides.
   2x/3 + 1 - 1 = 5 - 1
   2x/3 = 4

Step 2: Multiply both sides by 3 to clear the fraction.
   2x/3 × 3 = 4 × 3
   2x = 12

Step 3: Divide both sides by 2 to solve for x.
   2x ÷ 2 = 12 ÷ 2
   x = 6`,

	"solve x^2 - 5x + 6 = 0": `Step 1: Factor the quadratic. We need two numbers that multiply to 6 and add to -5.
   Those are -2 and -3. So: x² - 5x + 6 = (x - 2)(x - 3) = 0

Step 2: Set each factor equal to zero (if a product is 0, one factor must be 0).
   x - 2 = 0  or  x - 3 = 0

Step 3: Solve each equation.
   x = 2  or  x = 3`,

	"solve x^2 - 4 = 0": `Step 1: Add 4 to both sides.
   x² - 4 + 4 = 0 + 4
   x² = 4

Step 2: Take the square root of both sides. Remember: √(x²) = |x|, so x can be positive or negative.
   x = √4  or  x = -√4
   x = 2  or  x = -2`,

	"factor x^2 - 9": `Step 1: Recognize this as a difference of squares: a² - b² = (a + b)(a - b).
   Here, x² - 9 = x² - 3²

Step 2: Apply the formula with a = x and b = 3.
   x² - 9 = (x + 3)(x - 3)`,

	"expand (x + 3)(x - 2)": `Step 1: Use FOIL (First, Outer, Inner, Last) to multiply.
   First:  x × x = x²
   Outer:  x × (-2) = -2x
   Inner:  3 × x = 3x
   Last:   3 × (-2) = -6

Step 2: Combine all terms.
   x² - 2x + 3x - 6

Step 3: Combine like terms (-2x + 3x = x).
   x² + x - 6`,

	"simplify (2x^2 + 4x)/(2x)": `Step 1: Factor the numerator. Both terms have 2x in common.
   2x² + 4x = 2x(x + 2)

Step 2: Rewrite the fraction and cancel the common factor 2x.
   (2x(x + 2)) / (2x) = x + 2

   (We can cancel because 2x ≠ 0 when we simplify.)`,

	"simplify sqrt(50)": `Step 1: Factor 50 into a perfect square times something else.
   50 = 25 × 2 = 5² × 2

Step 2: Use the rule √(a × b) = √a × √b.
   √50 = √(25 × 2) = √25 × √2

Step 3: Simplify √25 = 5.
   √50 = 5√2`,

	"derivative of x^3 + 2x^2": `Step 1: Apply the power rule to each term: d/dx(xⁿ) = n·xⁿ⁻¹
   For x³: the exponent 3 comes down, and we reduce the exponent by 1 → 3x²
   For 2x²: the 2 stays; the exponent 2 comes down, reduce by 1 → 2·2x¹ = 4x

Step 2: Add the results.
   d/dx(x³ + 2x²) = 3x² + 4x`,

	"derivative of sin(x)": `Step 1: Use the derivative rule for sine.
   The derivative of sin(x) with respect to x is cos(x).

   d/dx(sin(x)) = cos(x)

   (This is a standard result from calculus: the rate of change of sine is cosine.)`,

	"derivative of e^(2x)": `Step 1: The derivative of eᵘ is eᵘ times the derivative of u (chain rule).
   Here u = 2x, so du/dx = 2.

Step 2: Apply the chain rule: d/dx(e^(2x)) = e^(2x) × 2 = 2e^(2x)`,

	"integrate x^2 dx": `Step 1: Use the power rule for integrals: ∫xⁿ dx = xⁿ⁺¹/(n+1) + C
   Here n = 2, so we add 1 to the exponent and divide by the new exponent.

Step 2: Apply the rule.
   ∫x² dx = x³/3 + C`,

	"integrate sin(x) dx": `Step 1: Use the standard integral of sine.
   The derivative of -cos(x) is sin(x), so the integral of sin(x) is -cos(x).

   ∫sin(x) dx = -cos(x) + C`,

	"integrate 1/(1+x^2) dx": `Step 1: Recognize this as the derivative of arctan(x).
   The derivative of arctan(x) is 1/(1 + x²), so the integral reverses this.

   ∫1/(1 + x²) dx = arctan(x) + C`,
}

// NormalizeQuestion lowercases, trims and collapses whitespace.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// WorkedSolution returns the built-in explanation for an exact (normalized)
// match, or "".
func WorkedSolution(question string) string {
	norm := NormalizeQuestion(question)
	for _, q := range PracticeQuestions {
		if NormalizeQuestion(q) == norm {
			return workedSolutions[q]
		}
	}
	return ""
}

// LookupWorked matches a question against the built-in problems, exactly
// first and then by substring in either direction.
func LookupWorked(question string) (*Solution, bool) {
	norm := NormalizeQuestion(question)
	if norm == "" {
		return nil, false
	}
	for _, q := range PracticeQuestions {
		if NormalizeQuestion(q) == norm {
			return builtIn(q), true
		}
	}
	for _, q := range PracticeQuestions {
		nq := NormalizeQuestion(q)
		if strings.Contains(nq, norm) || strings.Contains(norm, nq) {
			return builtIn(q), true
		}
	}
	return nil, false
}

func builtIn(q string) *Solution {
	steps := workedSolutions[q]
	return &Solution{Question: q, InputInterpretation: q, Steps: steps, HowToSolve: steps, AllPods: []Pod{}}
}
