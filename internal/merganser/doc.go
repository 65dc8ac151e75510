// Package merganser merges GitLab merge requests on behalf of their
// authors.
//
// Assigning a merge request to the bot user hands it over for merging.
// The bot keeps one loop per accessible project. A loop periodically lists
// the open merge requests that are assigned to the bot, orders them and
// merges them one after another. Before a merge request is merged its
// source branch is updated with the target branch and the CI result for
// the updated branch is awaited, so that only tested states reach the
// target branch.
//
// Merge requests that can not be merged without help of a human are
// commented and assigned back to their author. Temporary obstacles, like a
// flaky pipeline or a merge embargo, keep the merge request assigned, it
// is retried after a pause that grows with every failed attempt.
//
// Components
//
// The Bot discovers the projects that the bot user can merge in and
// starts one projectLoop per project. Loops of projects that became
// inaccessible are disabled, loops that fail otherwise are restarted.
//
// A projectLoop owns a FIFO set of pending merge requests per project.
// It schedules one job at a time on a single worker goroutine, either a
// mergejob.Job for one merge request or a mergejob.BatchJob for several
// with the same target branch.
package merganser
