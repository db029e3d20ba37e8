package model

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
)

// Method is the cost-basis method used to match disposals against acquisitions.
// It is a closed set: fifo, lifo and average_cost.
type Method string

const (
	MethodFIFO        Method = "fifo"
	MethodLIFO        Method = "lifo"
	MethodAverageCost Method = "average_cost"
)

// AllMethods lists every supported method in reporting order.
var AllMethods = []Method{MethodFIFO, MethodLIFO, MethodAverageCost}

// ParseMethod resolves a method name. Upper-case names such as "AVERAGE_COST"
// and the short forms "avg" and "average" are accepted.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return MethodFIFO, nil
	case "lifo":
		return MethodLIFO, nil
	case "average_cost", "average-cost", "averagecost", "average", "avg":
		return MethodAverageCost, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownMethod, s)
}

// ParseMethods parses a comma-separated method list. An empty string yields all methods.
func ParseMethods(s string) ([]Method, error) {
	if strings.TrimSpace(s) == "" {
		return AllMethods, nil
	}
	var methods []Method
	seen := make(map[Method]bool)
	for _, part := range strings.Split(s, ",") {
		m, err := ParseMethod(part)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	return methods, nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodAverageCost:
		return true
	}
	return false
}

// UsesLots reports whether the method matches disposals against discrete lots.
func (m Method) UsesLots() bool {
	return m == MethodFIFO || m == MethodLIFO
}
