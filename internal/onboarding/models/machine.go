package models

import (
	"errors"
	"slices"

	accountmodels "medbridge/internal/accounts/models"
	dErrors "medbridge/pkg/domain-errors"
)

// ErrStale marks a gate result whose ticket no longer matches the active step.
var ErrStale = errors.New("stale gate result")

// Gate is the verification record of one step.
type Gate struct {
	Status    Status       `json:"status"`
	Attempts  int          `json:"attempts"`
	Skipped   bool         `json:"skipped,omitempty"`
	LastError dErrors.Code `json:"last_error,omitempty"`
	// LastErrorDescription is the user-facing message of the last failure.
	LastErrorDescription string `json:"last_error_description,omitempty"`

	// restore is the status to return to when an in-flight attempt is abandoned.
	restore Status
}

// Ticket identifies one gate invocation. Results are applied only while the
// machine is still on Step at Epoch.
type Ticket struct {
	Step  Step   `json:"step"`
	Epoch uint64 `json:"epoch"`
}

// Machine is the serializable workflow context: profile plus position.
// It performs no I/O and no locking.
type Machine struct {
	Step      Step           `json:"step"`
	Epoch     uint64         `json:"epoch"`
	Blocked   bool           `json:"blocked"`
	Profile   Profile        `json:"profile"`
	Gates     map[Step]*Gate `json:"gates"`
	AccountID string         `json:"account_id,omitempty"`
}

func NewMachine() *Machine {
	return &Machine{Step: StepRoleSelect, Gates: map[Step]*Gate{}}
}

// Sequence is the ordered steps for the selected role.
func (m *Machine) Sequence() []Step {
	return Sequence(m.Profile.Role)
}

// GateStatus returns the status of step, pending when never touched.
func (m *Machine) GateStatus(step Step) Status {
	if g, ok := m.Gates[step]; ok {
		return g.Status
	}
	return StatusPending
}

func (m *Machine) gate(step Step) *Gate {
	g, ok := m.Gates[step]
	if !ok {
		g = &Gate{Status: StatusPending}
		m.Gates[step] = g
	}
	return g
}

// SelectRole records the role and moves to its first gate. Choosing a
// different role than before discards the previous role's progress.
func (m *Machine) SelectRole(role accountmodels.Role) error {
	if err := m.checkActive(StepRoleSelect); err != nil {
		return err
	}
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "role must be uk_specialist or gaza_clinician")
	}
	if role != m.Profile.Role {
		m.Profile = Profile{Role: role}
		m.Gates = map[Step]*Gate{}
	}
	m.advance()
	return nil
}

// Begin moves the active gate to verifying. A gate already verifying rejects
// a second invocation.
func (m *Machine) Begin(step Step) (Ticket, error) {
	if err := m.checkActive(step); err != nil {
		return Ticket{}, err
	}
	if !IsGate(step) {
		return Ticket{}, dErrors.New(dErrors.CodeConflict, "step has no verification")
	}
	g := m.gate(step)
	if g.Status == StatusVerifying {
		return Ticket{}, dErrors.New(dErrors.CodeConflict, "verification already in progress for this step")
	}
	g.restore = g.Status
	g.Status = StatusVerifying
	g.Attempts++
	return Ticket{Step: step, Epoch: m.Epoch}, nil
}

// Succeed marks the ticket's gate verified, applies the result to the profile
// and advances. Stale tickets return ErrStale and change nothing.
func (m *Machine) Succeed(t Ticket, apply func(p *Profile)) error {
	if m.isStale(t) {
		return ErrStale
	}
	g := m.gate(t.Step)
	g.Status = StatusVerified
	g.Skipped = false
	g.LastError = ""
	g.LastErrorDescription = ""
	m.applyProfile(apply)
	m.advance()
	return nil
}

// Settle ends an attempt without verifying the gate, restoring its previous
// status. Used for sub-actions such as dispatching a code.
func (m *Machine) Settle(t Ticket, apply func(p *Profile)) error {
	if m.isStale(t) {
		return ErrStale
	}
	g := m.gate(t.Step)
	g.Status = g.restore
	m.applyProfile(apply)
	return nil
}

// Fail marks the ticket's gate failed. A policy-blocked failure blocks the
// whole attempt.
func (m *Machine) Fail(t Ticket, cause error) error {
	if m.isStale(t) {
		return ErrStale
	}
	g := m.gate(t.Step)
	g.Status = StatusFailed
	g.LastError = dErrors.CodeOf(cause)
	g.LastErrorDescription = dErrors.MessageOf(cause)
	if g.LastError == dErrors.CodePolicyBlocked {
		m.Blocked = true
	}
	return nil
}

// CanSkip reports whether the active gate may be forced to verified.
func (m *Machine) CanSkip() bool {
	if m.Blocked || !IsGate(m.Step) || !PolicyFor(m.Step).Skippable {
		return false
	}
	g, ok := m.Gates[m.Step]
	if !ok {
		return true
	}
	return g.LastError != dErrors.CodeInvalidInput && g.LastError != dErrors.CodePolicyBlocked
}

// Skip forces the active gate to verified and advances. Skipping a verified
// gate changes nothing. An in-flight attempt is abandoned.
func (m *Machine) Skip() (bool, error) {
	if m.Blocked {
		return false, errBlocked()
	}
	if !IsGate(m.Step) {
		return false, dErrors.New(dErrors.CodeConflict, "this step cannot be skipped")
	}
	if m.GateStatus(m.Step) == StatusVerified {
		return false, nil
	}
	if !m.CanSkip() {
		return false, dErrors.New(dErrors.CodePolicyBlocked, "this step cannot be skipped")
	}
	g := m.gate(m.Step)
	g.Status = StatusVerified
	g.Skipped = true
	m.advance()
	return true, nil
}

// Continue advances past an already verified step, e.g. after navigating back.
func (m *Machine) Continue() error {
	if m.Blocked {
		return errBlocked()
	}
	switch {
	case m.Step == StepComplete:
		return dErrors.New(dErrors.CodeConflict, "onboarding is already complete")
	case m.Step == StepRoleSelect:
		if !m.Profile.Role.IsValid() {
			return dErrors.New(dErrors.CodeConflict, "select a role first")
		}
	case m.GateStatus(m.Step) != StatusVerified:
		return dErrors.New(dErrors.CodeConflict, "this step is not verified yet")
	}
	m.advance()
	return nil
}

// Back returns to the previous step. Gate statuses are kept; an in-flight
// attempt on the step being left is abandoned.
func (m *Machine) Back() error {
	if m.Blocked {
		return errBlocked()
	}
	switch m.Step {
	case StepRoleSelect:
		return dErrors.New(dErrors.CodeConflict, "already at the first step")
	case StepComplete:
		if m.AccountID != "" {
			return dErrors.New(dErrors.CodeConflict, "onboarding is already complete")
		}
	}
	if g, ok := m.Gates[m.Step]; ok && g.Status == StatusVerifying {
		g.Status = g.restore
	}
	seq := m.Sequence()
	idx := slices.Index(seq, m.Step)
	m.Step = seq[max(idx-1, 0)]
	m.Epoch++
	return nil
}

// Reset discards profile and statuses. The epoch keeps increasing so tickets
// from before the reset stay stale.
func (m *Machine) Reset() error {
	if m.AccountID != "" {
		return dErrors.New(dErrors.CodeConflict, "onboarding is already complete")
	}
	*m = Machine{Step: StepRoleSelect, Epoch: m.Epoch + 1, Gates: map[Step]*Gate{}}
	return nil
}

// MarkComplete records the materialized account.
func (m *Machine) MarkComplete(accountID string) {
	m.AccountID = accountID
}

// Clone returns a deep copy.
func (m *Machine) Clone() *Machine {
	c := *m
	c.Profile = m.Profile.clone()
	c.Gates = make(map[Step]*Gate, len(m.Gates))
	for step, g := range m.Gates {
		gc := *g
		c.Gates[step] = &gc
	}
	return &c
}

// EmailConfirmed reports whether the role's code confirmation gate is verified
// for the address currently on the profile.
func (m *Machine) EmailConfirmed() bool {
	for _, step := range m.Sequence() {
		if ConfirmsEmail(step) {
			return m.GateStatus(step) == StatusVerified
		}
	}
	return false
}

// applyProfile runs apply and drops any confirmation bound to a previous
// address when the email changes.
func (m *Machine) applyProfile(apply func(p *Profile)) {
	if apply == nil {
		return
	}
	previous := m.Profile.Email
	apply(&m.Profile)
	if m.Profile.Email == previous {
		return
	}
	m.Profile.EmailVerified = false
	for step, g := range m.Gates {
		if ConfirmsEmail(step) {
			*g = Gate{Status: StatusPending, Attempts: g.Attempts}
		}
	}
}

func (m *Machine) isStale(t Ticket) bool {
	if t.Epoch != m.Epoch || t.Step != m.Step {
		return true
	}
	return m.GateStatus(t.Step) != StatusVerifying
}

func (m *Machine) checkActive(step Step) error {
	if m.Blocked {
		return errBlocked()
	}
	if m.Step != step {
		return dErrors.New(dErrors.CodeConflict, "step "+string(step)+" is not the active step")
	}
	return nil
}

func (m *Machine) advance() {
	seq := m.Sequence()
	if idx := slices.Index(seq, m.Step); idx >= 0 && idx+1 < len(seq) {
		m.Step = seq[idx+1]
	}
	m.Epoch++
}

func errBlocked() error {
	return dErrors.New(dErrors.CodePolicyBlocked, "this onboarding attempt is blocked, restart to try again")
}
