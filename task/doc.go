// Package task separates the two kinds of background work the service runs.
//
// A Task is fatal: it is a member of the join Set, runs until its context is
// cancelled, and its first failure ends the process. Only New builds one, so
// anything that reaches a Set went through that explicit step.
//
// A Detached function is fire-and-forget: it is handed to a Spawner, which
// runs it and routes any error to a diagnostic sink. A Detached value cannot
// be added to a Set.
//
//	set := task.NewSet()
//	_ = set.Add(task.New("web", srv.Run))
//	_ = set.Add(task.New("chat", runtime.Run))
//	err := set.Run(ctx) // first failure, or nil on external shutdown
package task
