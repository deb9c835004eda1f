package aae

// Pause implements spec §4.5's `pause` message: if not already
// paused, save the current schedule-wants as the backup and replace
// them with (sliceCount, 0, 0, 0) — every future slice resolves to
// NoSync until Resume. Pause never cancels an in-flight exchange and
// never touches the already-armed timeout; it only changes what the
// *next* dispatch decides.
func (c *Coordinator) Pause() error {
	var err error
	c.call(func() timerDirective {
		if c.state.Paused {
			err = ErrAlreadyPaused
			return timerDirective{}
		}
		backup := c.state.Wants
		c.state.PausedBack = &backup
		c.state.Wants = ScheduleWants{NoSync: c.state.SliceCount}
		c.state.Paused = true
		return timerDirective{}
	})
	return err
}

// Resume implements spec §4.5's `resume` message: restore the backed-
// up schedule-wants and clear the paused flag. It does not re-plan the
// current day — the pending allocations drawn under the paused quotas
// keep draining, and the restored quotas only take effect once the
// pending list next empties and a fresh day is planned. This mirrors
// the reference implementation's choice (spec §4.5, §9) rather than
// forcing an immediate replan.
func (c *Coordinator) Resume() error {
	var err error
	c.call(func() timerDirective {
		if !c.state.Paused {
			err = ErrNotPaused
			return timerDirective{}
		}
		c.state.Wants = *c.state.PausedBack
		c.state.PausedBack = nil
		c.state.Paused = false
		return timerDirective{rearm: true, wait: InitialTimeout, clearFire: true}
	})
	return err
}

// SetSink implements spec §4.5's `set_sink` message: overwrite the
// remote endpoint.
func (c *Coordinator) SetSink(ep Endpoint) error {
	c.call(func() timerDirective {
		c.state.Remote = ep
		return timerDirective{rearm: true, wait: InitialTimeout, clearFire: true}
	})
	return nil
}

// SetSource implements spec §4.5's `set_source` message: overwrite
// the local endpoint.
func (c *Coordinator) SetSource(ep Endpoint) error {
	c.call(func() timerDirective {
		c.state.Local = ep
		return timerDirective{rearm: true, wait: InitialTimeout, clearFire: true}
	})
	return nil
}

// SetAllSync implements spec §4.5's `set_allsync` message: switch
// scope to All and set the n-vals. This does not re-plan the current
// day's pending allocations, matching set_bucketsync and pause/resume.
func (c *Coordinator) SetAllSync(localNVal, remoteNVal int) error {
	c.call(func() timerDirective {
		c.state.Scope = ScopeAll
		c.state.LocalNVal = localNVal
		c.state.RemoteNVal = remoteNVal
		return timerDirective{}
	})
	return nil
}

// SetBucketSync implements spec §4.5's `set_bucketsync` message:
// switch scope to Bucket and replace the rotating bucket list.
func (c *Coordinator) SetBucketSync(buckets BucketList) error {
	c.call(func() timerDirective {
		c.state.Scope = ScopeBucket
		c.state.BucketList = buckets
		return timerDirective{}
	})
	return nil
}

// Snapshot returns a copy of the coordinator's state for
// introspection (e.g. the control HTTP surface's status endpoint). It
// goes through the mailbox so it reflects a consistent point in the
// serialized message order.
func (c *Coordinator) Snapshot() CoordinatorState {
	var snap CoordinatorState
	c.call(func() timerDirective {
		snap = c.state
		snap.BucketList = append(BucketList(nil), c.state.BucketList...)
		snap.Pending = append([]Allocation(nil), c.state.Pending...)
		return timerDirective{}
	})
	return snap
}
