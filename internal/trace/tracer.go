//go:build linux

// Package trace provides traceroute functionality.
package trace

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hoplight/hoplight/internal/enrich"
	"github.com/hoplight/hoplight/internal/engineloop"
	"github.com/hoplight/hoplight/internal/packetcodec"
	"github.com/hoplight/hoplight/internal/probeengine"
)

// Tracer performs network path tracing operations, driving a single
// shared probeengine.Engine rather than one blocking prober per
// protocol: every in-flight probe of a trace — across every hop and
// every repetition — lives in the same non-blocking event loop.
type Tracer struct {
	config   *Config
	engine   *probeengine.Engine
	loop     *engineloop.Loop
	enricher *enrich.Enricher
}

// New creates a new Tracer with the given configuration. Opening the
// engine's raw sockets happens here, while the caller still holds
// whatever privilege it was started with; Calibrate then runs
// immediately, since this codebase does not itself drop privileges
// between the two phases.
func New(config *Config) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine, err := probeengine.NewPrivileged(packetcodec.New())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize probe engine: %w", err)
	}
	if err := engine.Calibrate(); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to calibrate probe engine: %w", err)
	}

	var enricher *enrich.Enricher
	if config.EnableEnrichment {
		enricher = enrich.NewEnricher(enrich.EnricherConfig{
			EnableRDNS:  config.EnableRDNS,
			EnableASN:   config.EnableASN,
			EnableGeoIP: config.EnableGeoIP,
		})
	}

	loop := engineloop.New(engine)
	loop.Idle = 50 * time.Millisecond

	return &Tracer{
		config:   config,
		engine:   engine,
		loop:     loop,
		enricher: enricher,
	}, nil
}

// protocolFor maps the trace-level ProbeMethod onto the engine's
// Protocol, resolving ProbeParis to the underlying protocol it carries
// (the Paris technique itself lives in how newHopParams keeps the
// destination port constant across TTLs and repetitions).
func (t *Tracer) protocolFor() probeengine.Protocol {
	switch t.config.ProbeMethod {
	case ProbeUDP, ProbeParis:
		return probeengine.ProtoUDP
	case ProbeTCP:
		return probeengine.ProtoTCP
	default:
		return probeengine.ProtoICMP
	}
}

// Trace performs a traceroute to the specified target.
func (t *Tracer) Trace(ctx context.Context, target string) (*TraceResult, error) {
	dest, err := t.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	ipVersion := probeengine.IPv4
	if dest.To4() == nil {
		ipVersion = probeengine.IPv6
	}

	var hops []Hop
	if t.config.Sequential {
		hops, err = t.traceSequential(ctx, dest, ipVersion)
	} else {
		hops, err = t.traceConcurrent(ctx, dest, ipVersion)
	}
	if err != nil {
		return nil, err
	}

	if t.enricher != nil {
		t.enrichHops(ctx, hops)
	}

	return t.buildResult(target, dest, hops), nil
}

func (t *Tracer) enrichHops(ctx context.Context, hops []Hop) {
	ips := make([]net.IP, 0, len(hops))
	for _, hop := range hops {
		if hop.IP != nil {
			ips = append(ips, hop.IP)
		}
	}

	enrichResults := t.enricher.EnrichIPs(ctx, ips)

	for i := range hops {
		if hops[i].IP == nil {
			continue
		}
		result := enrichResults[hops[i].IP.String()]
		if result == nil {
			continue
		}
		hops[i].Hostname = result.Hostname
		if result.ASN != nil {
			hops[i].ASN = &ASNInfo{
				Number:  result.ASN.Number,
				Org:     result.ASN.Org,
				Country: result.ASN.Country,
			}
		}
		if result.Geo != nil {
			hops[i].Geo = &GeoInfo{
				Country:     result.Geo.Country,
				CountryCode: result.Geo.CountryCode,
				City:        result.Geo.City,
				Latitude:    result.Geo.Latitude,
				Longitude:   result.Geo.Longitude,
			}
		}
	}
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	var errs []error

	if t.engine != nil {
		t.engine.Close()
	}

	if t.enricher != nil {
		if err := t.enricher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// resolveTarget resolves a hostname or IP string to a net.IP.
func (t *Tracer) resolveTarget(ctx context.Context, target string) (net.IP, error) {
	if ip := net.ParseIP(target); ip != nil {
		if t.config.IPv4 && ip.To4() == nil {
			return nil, fmt.Errorf("%s is an IPv6 address but IPv4 was requested", target)
		}
		if t.config.IPv6 && ip.To4() != nil {
			return nil, fmt.Errorf("%s is an IPv4 address but IPv6 was requested", target)
		}
		return ip, nil
	}

	var network string
	switch {
	case t.config.IPv6:
		network = "ip6"
	case t.config.IPv4:
		network = "ip4"
	default:
		network = "ip"
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %s", target)
	}

	if !t.config.IPv6 {
		for _, ip := range ips {
			if ip.To4() != nil {
				return ip, nil
			}
		}
	}

	return ips[0], nil
}

// newHopParams builds the probeengine.Params for one probe of one hop.
// Paris mode holds DestPort constant across TTLs and repetitions
// instead of adding the probe index to it. The source port is not
// held constant: each probe still gets its own source port from the
// engine's probe table, which is its correlation key.
func (t *Tracer) newHopParams(dest net.IP, ipVersion probeengine.IPVersion, ttl, index int) probeengine.Params {
	destPort := t.config.DestPort
	if !t.config.Paris {
		destPort += index
	}

	return probeengine.Params{
		Protocol:     t.protocolFor(),
		IPVersion:    ipVersion,
		TTL:          ttl,
		Address:      dest.String(),
		DestPort:     destPort,
		Timeout:      t.config.Timeout,
		CommandToken: encodeToken(ttl, index),
		PayloadSize:  32,
	}
}

// traceConcurrent submits every hop's probes to the shared engine up
// front and drains the event loop once; the engine's table (capacity
// probeengine.MaxProbes) and non-blocking sockets are what make this
// safe without a goroutine per probe (spec.md §5's single-threaded,
// many-probes-in-flight model).
func (t *Tracer) traceConcurrent(ctx context.Context, dest net.IP, ipVersion probeengine.IPVersion) ([]Hop, error) {
	hopsByTTL := make(map[int]*Hop, t.config.MaxHops)
	order := make([]int, 0, t.config.MaxHops)

	for ttl := t.config.FirstHop; ttl <= t.config.MaxHops; ttl++ {
		hopsByTTL[ttl] = &Hop{Number: ttl, RTTs: make([]float64, 0, t.config.ProbeCount)}
		order = append(order, ttl)

		for i := 0; i < t.config.ProbeCount; i++ {
			if err := t.engine.SendProbe(t.newHopParams(dest, ipVersion, ttl, i)); err != nil {
				return nil, err
			}
		}
	}

	if err := t.drainUntilDone(ctx, hopsByTTL); err != nil {
		return nil, err
	}

	return t.finishHops(hopsByTTL, order), nil
}

// traceSequential probes one TTL at a time, advancing to the next TTL
// only once every probe of the current one has a terminal outcome, and
// stopping early on arrival at dest — matching classic traceroute's
// hop-by-hop pacing.
func (t *Tracer) traceSequential(ctx context.Context, dest net.IP, ipVersion probeengine.IPVersion) ([]Hop, error) {
	var hops []Hop

	for ttl := t.config.FirstHop; ttl <= t.config.MaxHops; ttl++ {
		select {
		case <-ctx.Done():
			return hops, ctx.Err()
		default:
		}

		hopsByTTL := map[int]*Hop{ttl: {Number: ttl, RTTs: make([]float64, 0, t.config.ProbeCount)}}

		for i := 0; i < t.config.ProbeCount; i++ {
			if err := t.engine.SendProbe(t.newHopParams(dest, ipVersion, ttl, i)); err != nil {
				return hops, err
			}
		}

		if err := t.drainUntilDone(ctx, hopsByTTL); err != nil {
			return hops, err
		}

		hop := hopsByTTL[ttl]
		finishHop(hop)
		hops = append(hops, *hop)

		if t.config.OnHop != nil {
			t.config.OnHop(hop)
		}

		if hop.Responded && hop.IP != nil && hop.IP.Equal(dest) {
			break
		}
	}

	return hops, nil
}

// drainUntilDone runs the event loop to completion, applying every
// Outcome to its hop. Every probe submitted for hopsByTTL's TTLs must
// be the only thing in flight on the engine when this is called, since
// DrainContext only returns once the table is empty.
func (t *Tracer) drainUntilDone(ctx context.Context, hopsByTTL map[int]*Hop) error {
	outcomes, err := t.loop.DrainContext(ctx)
	for _, o := range outcomes {
		applyOutcome(hopsByTTL, o)
	}
	return err
}

// finishHops converts the per-TTL accumulator into the ordered Hop
// slice the rest of the package expects, computing RTT statistics for
// each.
func (t *Tracer) finishHops(hopsByTTL map[int]*Hop, order []int) []Hop {
	hops := make([]Hop, 0, len(order))
	for _, ttl := range order {
		hop := hopsByTTL[ttl]
		finishHop(hop)
		hops = append(hops, *hop)
		if t.config.OnHop != nil {
			t.config.OnHop(hop)
		}
	}
	return hops
}

func finishHop(hop *Hop) {
	hop.AvgRTT, hop.MinRTT, hop.MaxRTT, hop.Jitter = calculateRTTStats(hop.RTTs)
	hop.LossPercent = calculateLossPercent(hop.RTTs)
}

// buildResult creates a TraceResult from the collected hops.
func (t *Tracer) buildResult(target string, dest net.IP, hops []Hop) *TraceResult {
	result := &TraceResult{
		Target:      target,
		ResolvedIP:  dest,
		Timestamp:   time.Now(),
		ProbeMethod: t.config.ProbeMethod.String(),
		Hops:        hops,
		Completed:   false,
	}

	if len(hops) > 0 {
		lastHop := hops[len(hops)-1]
		if lastHop.IP != nil && lastHop.IP.Equal(dest) {
			result.Completed = true
		}
	}

	result.Summary = t.calculateSummary(hops)

	return result
}

// calculateSummary calculates aggregate statistics for the trace.
func (t *Tracer) calculateSummary(hops []Hop) Summary {
	summary := Summary{
		TotalHops: len(hops),
	}

	var totalLoss float64

	for _, hop := range hops {
		totalLoss += hop.LossPercent
	}

	if len(hops) > 0 {
		summary.PacketLossPercent = totalLoss / float64(len(hops))
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if hops[i].AvgRTT > 0 {
			summary.TotalTimeMs = hops[i].AvgRTT
			break
		}
	}

	return summary
}

// calculateRTTStats calculates RTT statistics from a slice of RTT values.
// Negative values are treated as timeouts and excluded from calculations.
func calculateRTTStats(rtts []float64) (avg, min, max, jitter float64) {
	var valid []float64
	for _, rtt := range rtts {
		if rtt >= 0 {
			valid = append(valid, rtt)
		}
	}

	if len(valid) == 0 {
		return 0, 0, 0, 0
	}

	min = valid[0]
	max = valid[0]
	sum := 0.0

	for _, rtt := range valid {
		sum += rtt
		if rtt < min {
			min = rtt
		}
		if rtt > max {
			max = rtt
		}
	}

	avg = sum / float64(len(valid))
	jitter = max - min

	return
}

// calculateLossPercent calculates packet loss percentage.
// Negative RTT values indicate timeouts.
func calculateLossPercent(rtts []float64) float64 {
	if len(rtts) == 0 {
		return 0
	}

	timeouts := 0
	for _, rtt := range rtts {
		if rtt < 0 {
			timeouts++
		}
	}

	return float64(timeouts) / float64(len(rtts)) * 100
}
