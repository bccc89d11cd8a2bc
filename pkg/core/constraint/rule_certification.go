package constraint

import "fmt"

// CertificationRule verifies the worker holds an active certification at
// the shift's location. Deactivated certifications do not count, but the
// rejection reason distinguishes a revoked certification from one that
// never existed.
type CertificationRule struct{}

// NewCertificationRule creates the location certification rule.
func NewCertificationRule() *CertificationRule {
	return &CertificationRule{}
}

func (r *CertificationRule) ID() string {
	return RuleCertification
}

func (r *CertificationRule) Check(snap *Snapshot, w WorkerData) Outcome {
	if w.HasActiveCertification(snap.Location.ID) {
		return pass(r.ID())
	}

	detail := "never certified for this location"
	if w.HasAnyCertification(snap.Location.ID) {
		detail = "certification was revoked"
	}
	return block(r.ID(), fmt.Sprintf(
		"%s is not certified to work at %s (%s)",
		w.Worker.FullName(), snap.Location.Name, detail))
}
