package window

import "errors"

// fakeSystem is an in-memory window system for tests.
type fakeSystem struct {
	order      []Handle
	windows    map[Handle]*Info
	foreground Handle
	calls      []string
	showErr    error
	minErr     error
	opacityErr error
	alpha      map[Handle]uint8
	enumErr    error
}

func newFakeSystem(infos ...Info) *fakeSystem {
	f := &fakeSystem{windows: map[Handle]*Info{}, alpha: map[Handle]uint8{}}
	for i := range infos {
		info := infos[i]
		f.order = append(f.order, info.Handle)
		f.windows[info.Handle] = &info
	}
	return f
}

func (f *fakeSystem) TopLevel() ([]Handle, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return append([]Handle(nil), f.order...), nil
}

func (f *fakeSystem) Describe(h Handle) (Info, error) {
	if h == 0 {
		return Info{}, ErrInvalidHandle
	}
	w, ok := f.windows[h]
	if !ok {
		return Info{}, ErrWindowGone
	}
	info := *w
	info.IsForeground = h == f.foreground
	return info, nil
}

func (f *fakeSystem) Foreground() Handle { return f.foreground }

func (f *fakeSystem) ShowNoActivate(h Handle) error {
	f.calls = append(f.calls, "show")
	if f.showErr != nil {
		return f.showErr
	}
	w, ok := f.windows[h]
	if !ok {
		return ErrWindowGone
	}
	w.IsMinimized = false
	w.IsVisible = true
	return nil
}

func (f *fakeSystem) Minimize(h Handle) error {
	f.calls = append(f.calls, "minimize")
	if f.minErr != nil {
		return f.minErr
	}
	w, ok := f.windows[h]
	if !ok {
		return ErrWindowGone
	}
	w.IsMinimized = true
	return nil
}

func (f *fakeSystem) Hide(h Handle) error {
	f.calls = append(f.calls, "hide")
	w, ok := f.windows[h]
	if !ok {
		return ErrWindowGone
	}
	w.IsVisible = false
	return nil
}

func (f *fakeSystem) Activate(h Handle) error {
	f.calls = append(f.calls, "activate")
	if _, ok := f.windows[h]; !ok {
		return errors.New("no such window")
	}
	f.foreground = h
	return nil
}

func (f *fakeSystem) SetOpacity(h Handle, alpha uint8) error {
	f.calls = append(f.calls, "opacity")
	if f.opacityErr != nil {
		return f.opacityErr
	}
	f.alpha[h] = alpha
	return nil
}

func (f *fakeSystem) ClearOpacity(h Handle) error {
	f.calls = append(f.calls, "clear-opacity")
	delete(f.alpha, h)
	return nil
}
