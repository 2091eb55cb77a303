// Package scheduler implements the client's traffic-generation scheduler
// (spec.md §4.E): a single-threaded cooperative loop that multiplexes a
// one-shot burst queue, a continuous-rate stream, and three shaped rate
// profiles onto a single outbound data stream.
package scheduler

import (
	"time"

	"github.com/ripplenet/ripple/internal/model"
)

// MaxInputPollTimeout caps how far into the future NextDeadline will ever
// report, so the client's outer loop never blocks on input longer than this
// (spec.md §4.E step 1).
const MaxInputPollTimeout = 50 * time.Millisecond

// maxPendingAcks bounds the in-flight RTT bookkeeping table so a client run
// against a server that stops acking doesn't leak memory indefinitely
// (SPEC_FULL.md "RTT/ack bookkeeping on the client").
const maxPendingAcks = 4096

// PacketSink is how the scheduler hands a composed Data packet to the
// transport; cmd/client wires this to the UDP socket + wire encoder.
type PacketSink interface {
	SendData(d model.Data)
}

// Peer is one known destination the scheduler can address.
type Peer struct {
	NodeID model.NodeId
	Domain model.NodeDomain
	Desc   model.Desc
}

// ScheduledSend is one queued burst entry (spec.md §4.E burst_queue).
type ScheduledSend struct {
	At            time.Time
	Class         model.TrafficClass
	DeclaredBytes uint32
}

// Continuous is the optional steady-cursor stream.
type Continuous struct {
	Class      model.TrafficClass
	NextSendAt time.Time
	Interval   time.Duration
	// DeclaredBytes is the payload size reported on every emitted packet.
	DeclaredBytes uint32
}

// ProfileKind tags which shaped-rate variant a Profile represents.
type ProfileKind uint8

const (
	ProfileNone ProfileKind = iota
	ProfileSteady
	ProfileRamp
	ProfileOscillation
)

// Profile is the tagged sum type of spec.md §4.E's active_profile: one
// struct carrying every variant's fields, discriminated by Kind, so the
// scheduler's deadline computation and stepping logic can stay uniform
// across variants instead of three separate types with duplicated plumbing.
type Profile struct {
	Kind  ProfileKind
	Class model.TrafficClass

	CurrentRate float64 // packets/sec, all variants
	NextSendAt  time.Time

	// Ramp
	MinRate, MaxRate, Step float64

	// Oscillation
	LowRate, HighRate float64
	Rising            bool

	// Ramp & Oscillation
	NextRateUpdateAt time.Time
	UpdateInterval   time.Duration

	// DeclaredBytes is the payload size reported on every emitted packet,
	// set from the declaredBytes argument of the SetProfile* call; there is
	// no scheduler-wide default.
	DeclaredBytes uint32
}

func (p *Profile) deadline() time.Time {
	d := p.NextSendAt
	if p.Kind == ProfileRamp || p.Kind == ProfileOscillation {
		if p.NextRateUpdateAt.Before(d) {
			d = p.NextRateUpdateAt
		}
	}
	return d
}

// step advances a Ramp/Oscillation profile's current_rate one update tick
// (spec.md §4.E step 5).
func (p *Profile) step() {
	switch p.Kind {
	case ProfileRamp:
		p.CurrentRate += p.Step
		if p.CurrentRate > p.MaxRate {
			p.CurrentRate = p.MinRate
		}
	case ProfileOscillation:
		if p.Rising {
			p.CurrentRate = p.HighRate
		} else {
			p.CurrentRate = p.LowRate
		}
		p.Rising = !p.Rising
	}
}

// SendMode is the scheduler's current coarse state (spec.md §4.E "State
// machine of send mode").
type SendMode int

const (
	Idle SendMode = iota
	Burst
	Continuous_
	ProfileMode
)

// RTTStats is a readout of the client's round-trip-time bookkeeping.
type RTTStats struct {
	MinUs, MaxUs uint64
	MeanUs       float64
	Count        uint64
}

// Scheduler holds all client-side traffic-generation state and dispatch
// logic described by spec.md §4.E.
type Scheduler struct {
	sink PacketSink

	selfNodeID model.NodeId
	selfDesc   model.Desc
	selfDomain model.NodeDomain

	srcDomain model.NodeDomain
	dstDomain model.NodeDomain

	peers       []Peer
	activeIndex int

	burstQueue []ScheduledSend
	continuous *Continuous
	profile    *Profile

	globalSeq uint32
	classSeq  [model.NumClasses]uint32

	pendingAcks  map[uint32]time.Time
	pendingOrder []uint32

	rttMinUs uint64
	rttMaxUs uint64
	rttSumUs uint64
	rttCount uint64

	peerSynthCounter uint32
}

// New returns a Scheduler for the given self-identity, addressing outbound
// traffic through sink.
func New(sink PacketSink, selfNodeID model.NodeId, selfDesc model.Desc, selfDomain model.NodeDomain) *Scheduler {
	return &Scheduler{
		sink:        sink,
		selfNodeID:  selfNodeID,
		selfDesc:    selfDesc,
		selfDomain:  selfDomain,
		srcDomain:   selfDomain,
		dstDomain:   model.DomainExternal,
		activeIndex: -1,
		pendingAcks: make(map[uint32]time.Time),
	}
}

// Mode reports the current coarse send-mode state.
func (s *Scheduler) Mode() SendMode {
	switch {
	case s.profile != nil:
		return ProfileMode
	case s.continuous != nil:
		return Continuous_
	case len(s.burstQueue) > 0:
		return Burst
	default:
		return Idle
	}
}

// AddPeer appends a peer to the roster, making it active if it's the first.
func (s *Scheduler) AddPeer(id model.NodeId, domain model.NodeDomain, desc model.Desc) {
	s.peers = append(s.peers, Peer{NodeID: id, Domain: domain, Desc: desc})
	if s.activeIndex < 0 {
		s.activeIndex = 0
	}
}

// CyclePeer advances the active peer index, wrapping around the roster.
func (s *Scheduler) CyclePeer() {
	if len(s.peers) == 0 {
		return
	}
	s.activeIndex = (s.activeIndex + 1) % len(s.peers)
}

// SetDestinationDomain changes which domain new emissions target.
func (s *Scheduler) SetDestinationDomain(d model.NodeDomain) {
	s.dstDomain = d
}

// Peers returns the current peer roster and active index, for display.
func (s *Scheduler) Peers() ([]Peer, int) {
	return s.peers, s.activeIndex
}

// ScheduleBurst appends count entries spaced interval apart starting at now,
// preserving FIFO order across repeated calls (spec.md §4.E schedule_burst).
func (s *Scheduler) ScheduleBurst(now time.Time, count int, interval time.Duration, class model.TrafficClass, declaredBytes uint32) {
	for i := 0; i < count; i++ {
		s.burstQueue = append(s.burstQueue, ScheduledSend{
			At:            now.Add(time.Duration(i) * interval),
			Class:         class,
			DeclaredBytes: declaredBytes,
		})
	}
}

// StartContinuous begins a continuous-rate stream, clearing the burst queue
// and any active profile (spec.md §4.E state machine).
func (s *Scheduler) StartContinuous(now time.Time, class model.TrafficClass, interval time.Duration, declaredBytes uint32) {
	s.burstQueue = nil
	s.profile = nil
	s.continuous = &Continuous{Class: class, NextSendAt: now, Interval: interval, DeclaredBytes: declaredBytes}
}

// SetProfileSteady installs a steady shaped-rate profile, clearing the
// burst queue and continuous stream.
func (s *Scheduler) SetProfileSteady(now time.Time, class model.TrafficClass, rate float64, declaredBytes uint32) {
	s.burstQueue = nil
	s.continuous = nil
	s.profile = &Profile{Kind: ProfileSteady, Class: class, CurrentRate: rate, NextSendAt: now, DeclaredBytes: declaredBytes}
}

// SetProfileRamp installs a ramping shaped-rate profile.
func (s *Scheduler) SetProfileRamp(now time.Time, class model.TrafficClass, minRate, maxRate, step float64, updateInterval time.Duration, declaredBytes uint32) {
	s.burstQueue = nil
	s.continuous = nil
	s.profile = &Profile{
		Kind: ProfileRamp, Class: class,
		MinRate: minRate, MaxRate: maxRate, Step: step, CurrentRate: minRate,
		NextSendAt: now, NextRateUpdateAt: now.Add(updateInterval), UpdateInterval: updateInterval,
		DeclaredBytes: declaredBytes,
	}
}

// SetProfileOscillation installs an oscillating shaped-rate profile.
func (s *Scheduler) SetProfileOscillation(now time.Time, class model.TrafficClass, lowRate, highRate float64, updateInterval time.Duration, declaredBytes uint32) {
	s.burstQueue = nil
	s.continuous = nil
	s.profile = &Profile{
		Kind: ProfileOscillation, Class: class,
		LowRate: lowRate, HighRate: highRate, CurrentRate: lowRate, Rising: true,
		NextSendAt: now, NextRateUpdateAt: now.Add(updateInterval), UpdateInterval: updateInterval,
		DeclaredBytes: declaredBytes,
	}
}

// Stop clears all active send modes, returning the scheduler to Idle.
func (s *Scheduler) Stop() {
	s.burstQueue = nil
	s.continuous = nil
	s.profile = nil
}

// NextDeadline computes the minimum of every pending deadline, capped by
// MaxInputPollTimeout (spec.md §4.E step 1).
func (s *Scheduler) NextDeadline(now time.Time) time.Time {
	cap_ := now.Add(MaxInputPollTimeout)
	deadline := cap_

	if len(s.burstQueue) > 0 && s.burstQueue[0].At.Before(deadline) {
		deadline = s.burstQueue[0].At
	}
	if s.continuous != nil && s.continuous.NextSendAt.Before(deadline) {
		deadline = s.continuous.NextSendAt
	}
	if s.profile != nil {
		if d := s.profile.deadline(); d.Before(deadline) {
			deadline = d
		}
	}
	if deadline.Before(now) {
		deadline = now
	}
	return deadline
}

// Tick drains the burst queue, continuous stream, and active profile for
// every deadline that has elapsed by now, in that order (spec.md §4.E steps
// 3-5). Input polling and inbound datagram draining are the caller's
// responsibility (cmd/client owns the socket and the keyboard).
func (s *Scheduler) Tick(now time.Time) {
	s.drainBurst(now)
	s.drainContinuous(now)
	s.drainProfile(now)
}

func (s *Scheduler) drainBurst(now time.Time) {
	for len(s.burstQueue) > 0 && !s.burstQueue[0].At.After(now) {
		head := s.burstQueue[0]
		s.burstQueue = s.burstQueue[1:]
		s.emit(now, head.Class, head.DeclaredBytes)
	}
}

func (s *Scheduler) drainContinuous(now time.Time) {
	c := s.continuous
	if c == nil {
		return
	}
	for !c.NextSendAt.After(now) {
		s.emit(now, c.Class, c.DeclaredBytes)
		c.NextSendAt = c.NextSendAt.Add(c.Interval)
	}
}

func (s *Scheduler) drainProfile(now time.Time) {
	p := s.profile
	if p == nil {
		return
	}
	if p.Kind == ProfileRamp || p.Kind == ProfileOscillation {
		for !p.NextRateUpdateAt.After(now) {
			p.step()
			p.NextRateUpdateAt = p.NextRateUpdateAt.Add(p.UpdateInterval)
		}
	}
	if p.CurrentRate <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / p.CurrentRate)
	for !p.NextSendAt.After(now) {
		s.emit(now, p.Class, p.DeclaredBytes)
		p.NextSendAt = p.NextSendAt.Add(interval)
	}
}

// resolveDestination implements spec.md §4.E's peer-resolution rule: reuse
// the active peer if it already matches the requested domain, otherwise
// find the first peer in that domain, otherwise synthesize one.
func (s *Scheduler) resolveDestination() Peer {
	if s.activeIndex >= 0 && s.activeIndex < len(s.peers) && s.peers[s.activeIndex].Domain == s.dstDomain {
		return s.peers[s.activeIndex]
	}
	for i, p := range s.peers {
		if p.Domain == s.dstDomain {
			s.activeIndex = i
			return p
		}
	}
	s.peerSynthCounter++
	id := model.NewNodeId(syntheticPeerName(s.dstDomain, s.peerSynthCounter))
	p := Peer{NodeID: id, Domain: s.dstDomain, Desc: model.NewDesc(syntheticPeerName(s.dstDomain, s.peerSynthCounter))}
	s.peers = append(s.peers, p)
	s.activeIndex = len(s.peers) - 1
	return p
}

func syntheticPeerName(domain model.NodeDomain, n uint32) string {
	prefix := "peer-i"
	if domain == model.DomainExternal {
		prefix = "peer-e"
	}
	return prefix + itoa(n)
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// emit composes and hands off one Data packet, then records its pending-ack
// entry and increments the sequence cursors (spec.md §4.E "Packet emission").
func (s *Scheduler) emit(now time.Time, class model.TrafficClass, declaredBytes uint32) {
	peer := s.resolveDestination()

	d := model.Data{
		SrcNodeID:     s.selfNodeID,
		DstNodeID:     peer.NodeID,
		GlobalSeq:     s.globalSeq,
		ClassSeq:      s.classSeq[class],
		Class:         class,
		TimestampUs:   uint64(now.UnixMicro()),
		DeclaredBytes: declaredBytes,
		Desc:          s.selfDesc,
		SrcDomain:     s.srcDomain,
		DstDomain:     peer.Domain,
	}
	s.sink.SendData(d)

	s.recordPendingAck(d.GlobalSeq, now)
	s.globalSeq++
	s.classSeq[class]++
}

func (s *Scheduler) recordPendingAck(seq uint32, now time.Time) {
	if len(s.pendingOrder) >= maxPendingAcks {
		oldest := s.pendingOrder[0]
		s.pendingOrder = s.pendingOrder[1:]
		delete(s.pendingAcks, oldest)
	}
	s.pendingAcks[seq] = now
	s.pendingOrder = append(s.pendingOrder, seq)
}

// OnAck retires a pending-ack entry and folds its RTT into the running
// min/max/sum/count (spec.md §4.E step 6, SPEC_FULL.md ack bookkeeping).
func (s *Scheduler) OnAck(ack model.Ack, now time.Time) {
	sent, ok := s.pendingAcks[ack.OriginalSeq]
	if !ok {
		return
	}
	delete(s.pendingAcks, ack.OriginalSeq)
	rttUs := uint64(now.Sub(sent).Microseconds())

	if s.rttCount == 0 || rttUs < s.rttMinUs {
		s.rttMinUs = rttUs
	}
	if rttUs > s.rttMaxUs {
		s.rttMaxUs = rttUs
	}
	s.rttSumUs += rttUs
	s.rttCount++
}

// RTT returns the current round-trip-time readout.
func (s *Scheduler) RTT() RTTStats {
	r := RTTStats{MinUs: s.rttMinUs, MaxUs: s.rttMaxUs, Count: s.rttCount}
	if s.rttCount > 0 {
		r.MeanUs = float64(s.rttSumUs) / float64(s.rttCount)
	}
	return r
}

// PendingAckCount reports the number of in-flight unacknowledged sends.
func (s *Scheduler) PendingAckCount() int { return len(s.pendingAcks) }

// BurstQueueLen reports the number of queued-but-not-yet-emitted burst
// entries.
func (s *Scheduler) BurstQueueLen() int { return len(s.burstQueue) }
