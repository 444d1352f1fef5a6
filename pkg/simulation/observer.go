package simulation

// Observer is notified of driver progress. Callbacks run on the goroutine
// that called Step, Pause or Resume.
type Observer interface {
	OnTick(d *Driver, obs Observation)
	OnPause(d *Driver, tick int)
	OnResume(d *Driver, tick int)
	OnComplete(d *Driver, tick int)
}

// BaseObserver implements Observer with no-ops for embedding.
type BaseObserver struct{}

func (BaseObserver) OnTick(*Driver, Observation) {}
func (BaseObserver) OnPause(*Driver, int)        {}
func (BaseObserver) OnResume(*Driver, int)       {}
func (BaseObserver) OnComplete(*Driver, int)     {}
