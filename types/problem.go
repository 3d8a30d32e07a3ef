package types

// ProblemType selects the inversion family a run solves. Joint runs carry
// both a gravity and a magnetic parameter set.
type ProblemType uint8

const (
	P_None ProblemType = iota
	P_ECT
	P_Gravity
	P_Magnetic
	P_Joint
)

var ProblemNameMap = map[string]ProblemType{
	"ect":         P_ECT,
	"capacitance": P_ECT,
	"gravity":     P_Gravity,
	"grav":        P_Gravity,
	"magnetic":    P_Magnetic,
	"mag":         P_Magnetic,
	"joint":       P_Joint,
	"gravmag":     P_Joint,
}

func (pt ProblemType) String() string {
	switch pt {
	case P_ECT:
		return "ect"
	case P_Gravity:
		return "gravity"
	case P_Magnetic:
		return "magnetic"
	case P_Joint:
		return "joint"
	}
	return "none"
}

// DepthWeightingType selects how per-element damping weights are derived.
type DepthWeightingType int

const (
	DW_EmpiricalDepth        DepthWeightingType = 1 // (depth+Z0)^(-beta/2)
	DW_SensitivityBelowData  DepthWeightingType = 2 // sqrt(S[p,d]) under the covering data cell
	DW_IntegratedSensitivity DepthWeightingType = 3 // sqrt(||S column||_2)
)
