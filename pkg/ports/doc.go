/*
Package ports defines the driven ports (interfaces) for the Lattice engine.

These interfaces decouple the core logic from external implementations, allowing
runs to be archived in various storage backends.

# Key Interfaces

  - RunStore: Responsible for archiving and loading run summaries (memory, Redis, SQLite).

RunStoreContract is a reusable test suite every RunStore adapter runs against.
*/
package ports
