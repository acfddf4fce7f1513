package kb

import "fmt"

// InvestigationType selects which diagnostic command list runs for a symptom
// group. It is a closed enum; the command table loader rejects assets that
// miss a type, and ParseInvestigationType rejects names outside the set.
type InvestigationType int

const (
	InvPodCrashLoop InvestigationType = iota
	InvPodUnknown
	InvVirtHandlerMemory
	InvVolumeSnapshot
	InvNooBaa
	InvMetal3
	InvEtcd
	InvMigration
	InvCSI
	InvOOM
)

var investigationTypeNames = map[InvestigationType]string{
	InvPodCrashLoop:      "pod-crashloop",
	InvPodUnknown:        "pod-unknown",
	InvVirtHandlerMemory: "virt-handler-memory",
	InvVolumeSnapshot:    "volumesnapshot",
	InvNooBaa:            "noobaa",
	InvMetal3:            "metal3",
	InvEtcd:              "etcd",
	InvMigration:         "migration",
	InvCSI:               "csi",
	InvOOM:               "oom",
}

func (t InvestigationType) String() string {
	if name, ok := investigationTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("investigation(%d)", int(t))
}

// InvestigationTypes returns every defined type in declaration order.
func InvestigationTypes() []InvestigationType {
	types := make([]InvestigationType, 0, len(investigationTypeNames))
	for t := InvPodCrashLoop; t <= InvOOM; t++ {
		types = append(types, t)
	}
	return types
}

// ParseInvestigationType maps an asset key onto the enum.
func ParseInvestigationType(name string) (InvestigationType, error) {
	for t, n := range investigationTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown investigation type %q", name)
}
