// Package shell drives an embedded SQL backend from a test.
//
// A Shell is created in a sandbox and configured before it starts: properties
// are registered with SetProperty and fixture files are queued with
// AddResource or AddResourceFile. Start freezes the configuration, copies the
// queued resources into the sandbox's virtual filesystem, launches the
// backend, and returns a Session. Scripts are executed on the Session.
//
// The two phases are separate types, so a script cannot be executed before
// Start. Configuration calls made on the Shell after Start, a second Start,
// and any Session call after Close fail with an ILLEGAL_STATE Error.
//
// Usage:
//
//	sb, _ := sandbox.Attach(t.TempDir())
//	sh := shell.New(sb, shell.Options{})
//	defer sh.Close()
//
//	_ = sh.SetProperty("sqlite.foreign_keys", "ON")
//	_ = sh.AddResource("data/t.csv", "a,b\n1,2")
//
//	sess, err := sh.Start(ctx)
//	if err != nil {
//	    return err
//	}
//	_ = sess.Execute(ctx, "CREATE TABLE t(a INT); INSERT INTO t VALUES (1)")
//	rows, _ := sess.ExecuteQuery(ctx, "SELECT a FROM t") // ["1"]
//
// Scripts are split into statements with package script and run one at a
// time. Execution is fail-fast: the first failing statement aborts the rest
// of its script, and statements that already ran stay applied. A failed
// statement does not affect the session, which remains usable.
package shell
