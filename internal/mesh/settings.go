package mesh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
)

// Settings tokens recognised on the first line of a snapshot.
const (
	TokenTriDim  = "tridim"
	TokenTriType = "tritype"
	TokenSol     = "sol"
	TokenDOF     = "dof"
	TokenError   = "error"
	TokenLinSol  = "linsol"
)

// Capabilities is the set of optional fields a snapshot carries. It is
// decided once from the settings line.
type Capabilities struct {
	// TriDim: each triangle starts with its local dimension.
	TriDim bool
	// TriType: each triangle carries its type after the vertex indices.
	TriType bool
	// Sol: each triangle ends with its solution coefficients.
	Sol bool
	// DOF: vertices carry a DOF id and triangles end with their DOF ids.
	DOF bool
	// Error: each triangle carries an error estimate.
	Error bool
	// LinSol: vertices carry the value of the linear interpolant.
	LinSol bool
}

// ParseSettings decodes a settings line. A line holding a single integer is
// the vertex count of a snapshot without optional fields; it is returned as
// count, otherwise count is -1.
func ParseSettings(line string) (caps Capabilities, count int, err error) {
	tokens := strings.Fields(line)
	if len(tokens) == 1 {
		if n, convErr := strconv.Atoi(tokens[0]); convErr == nil {
			if n < 0 {
				return Capabilities{}, 0, malformed(1, "vertex count", tokens[0], fmt.Errorf("negative count"))
			}
			return Capabilities{}, n, nil
		}
	}

	for _, tok := range tokens {
		switch tok {
		case TokenTriDim:
			caps.TriDim = true
		case TokenTriType:
			caps.TriType = true
		case TokenSol:
			caps.Sol = true
		case TokenDOF:
			caps.DOF = true
		case TokenError:
			caps.Error = true
		case TokenLinSol:
			caps.LinSol = true
		default:
			monitoring.Debugf("mesh: ignoring unknown settings token %q", tok)
		}
	}
	if err := caps.Validate(); err != nil {
		return Capabilities{}, 0, err
	}
	return caps, -1, nil
}

// Validate rejects capability combinations whose field layout is ambiguous.
func (c Capabilities) Validate() error {
	switch {
	case c.Sol && !c.TriType:
		return fmt.Errorf("%w: %q requires %q", ErrSchemaViolation, TokenSol, TokenTriType)
	case c.Sol && !c.TriDim:
		return fmt.Errorf("%w: %q requires %q to size the coefficient list", ErrSchemaViolation, TokenSol, TokenTriDim)
	case c.DOF && !c.TriDim:
		return fmt.Errorf("%w: %q requires %q to size the dof list", ErrSchemaViolation, TokenDOF, TokenTriDim)
	case c.Sol && c.DOF:
		return fmt.Errorf("%w: %q and %q both claim the triangle payload", ErrSchemaViolation, TokenSol, TokenDOF)
	case c.LinSol && c.DOF:
		return fmt.Errorf("%w: %q and %q both claim the third vertex field", ErrSchemaViolation, TokenLinSol, TokenDOF)
	}
	return nil
}

// Tokens returns the settings tokens for c in a fixed order.
func (c Capabilities) Tokens() []string {
	var out []string
	for _, f := range []struct {
		on  bool
		tok string
	}{
		{c.TriDim, TokenTriDim},
		{c.TriType, TokenTriType},
		{c.Sol, TokenSol},
		{c.DOF, TokenDOF},
		{c.Error, TokenError},
		{c.LinSol, TokenLinSol},
	} {
		if f.on {
			out = append(out, f.tok)
		}
	}
	return out
}

// String returns the settings line for c.
func (c Capabilities) String() string {
	return strings.Join(c.Tokens(), " ")
}
