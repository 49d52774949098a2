package progress

// Notifier is told when a submission passed every test case
type Notifier interface {
	NotifyCompleted(challengeID string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(challengeID string)

// NotifyCompleted calls f(challengeID)
func (f NotifierFunc) NotifyCompleted(challengeID string) {
	f(challengeID)
}

// Multi notifies every non nil notifier in order
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(challengeID string) {
		for _, n := range ns {
			if n != nil {
				n.NotifyCompleted(challengeID)
			}
		}
	})
}
