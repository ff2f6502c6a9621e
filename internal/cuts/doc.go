// Package cuts models the regions of a recording that the user has marked for
// removal.
//
// A Store tracks the ordered region collection plus at most one pending cut
// (a start mark awaiting its end). Mutations notify registered listeners with
// copies of the new state, so edit front ends can redraw without holding
// references into the store.
package cuts
