package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/clearwatch/channels"
	"github.com/hazyhaar/clearwatch/notify"
)

// BuildNotifier builds every configured channel and groups them by role.
// It returns nil when specs is empty. Several channels with the same role
// all receive the role's messages.
func BuildNotifier(reg *channels.Registry, specs []ChannelConfig, opts ...notify.Option) (*notify.Notifier, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	var primary, secondary []channels.Channel
	for _, spec := range specs {
		raw, err := spec.RawConfig()
		if err != nil {
			return nil, err
		}
		ch, err := reg.Build(spec.Name, spec.Platform, raw)
		if err != nil {
			return nil, fmt.Errorf("monitor: build channel %s: %w", spec.Name, err)
		}
		if spec.Role == RoleSecondary {
			secondary = append(secondary, ch)
		} else {
			primary = append(primary, ch)
		}
	}
	if len(primary) == 0 {
		return nil, fmt.Errorf("monitor: no %s channel among %d configured", RolePrimary, len(specs))
	}
	return notify.NewNotifier(fanOut(primary), fanOut(secondary), opts...), nil
}

// fanOut returns a single channel standing for chs, or nil when chs is empty.
func fanOut(chs []channels.Channel) channels.Channel {
	switch len(chs) {
	case 0:
		return nil
	case 1:
		return chs[0]
	}
	return multiChannel(chs)
}

type multiChannel []channels.Channel

func (m multiChannel) Name() string {
	name := m[0].Name()
	for _, ch := range m[1:] {
		name += "+" + ch.Name()
	}
	return name
}

// Send delivers to every member and joins their errors.
func (m multiChannel) Send(ctx context.Context, msg channels.Message) error {
	var errs []error
	for _, ch := range m {
		msg.Channel = ch.Name()
		if err := ch.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
