// Package watcher keeps a live view of reclaimable space under a root.
//
// A Watcher registers fsnotify watches on every directory under the root
// that is neither protected nor itself a match. Filesystem events are
// debounced; once the tree has been quiet for the debounce interval the
// root is rescanned and the callback receives the fresh result. Activity
// inside a matched directory (a node_modules being filled, say) is not
// watched, but its creation or removal is, since the parent is.
//
// Key features:
//   - Recursive fsnotify registration that follows newly created directories
//   - Debounced rescans (default 2s)
//   - Optional history recording of every rescan
//   - Daemon mode support with PID file management (unix)
//
// Example usage:
//
//	w, err := watcher.New(root, rules.Defaults(), func(res *cleaner.ScanResult, err error) {
//		if err == nil {
//			fmt.Println(res.TotalBytes())
//		}
//	}, watcher.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
