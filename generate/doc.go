// Package generate drives streaming model sessions against canvas nodes.
//
// A Controller owns at most one live session per node. Sessions stream
// chunks into the node's content as they arrive, can be stopped and later
// continued, and surface classified errors that Retry can clear and
// re-issue. Matrix fill and committee runs fan out into concurrent
// sessions tracked by a TaskRegistry so a whole group can be aborted at
// once.
package generate
