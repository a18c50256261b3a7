package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// Dataset wraps an opened or newly created dataset identity. Bulk row
// data is out of scope for this stub (spec.md §1 non-goals); dataset
// import/export is done through Session.SubmitText.
type Dataset struct {
	handle *orb.RemoteHandle
}

// NewDataset wraps o's dataset identity.
func NewDataset(o *orb.ORB, identity string) *Dataset {
	return &Dataset{handle: orb.NewRemoteHandle(o, identity)}
}

// Identity returns the dataset's remote identity.
func (d *Dataset) Identity() string { return d.handle.Identity() }

// Close releases the remote dataset.
func (d *Dataset) Close() error {
	buf := d.handle.Request("close")
	reply, err := d.handle.Invoke(buf)
	if err != nil {
		return err
	}
	d.handle.Release(reply)
	return nil
}

// GetNobs returns the dataset's observation count.
func (d *Dataset) GetNobs() (int64, error) {
	buf := d.handle.Request("getNobs")
	reply, err := d.handle.Invoke(buf)
	if err != nil {
		return 0, err
	}
	defer d.handle.Release(reply)
	return reply.ReadI64()
}

// GetNvars returns the dataset's variable count.
func (d *Dataset) GetNvars() (int32, error) {
	buf := d.handle.Request("getNvars")
	reply, err := d.handle.Invoke(buf)
	if err != nil {
		return 0, err
	}
	defer d.handle.Release(reply)
	return reply.ReadI32()
}
