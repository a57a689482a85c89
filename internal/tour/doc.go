// Package tour runs the ormtour walkthrough: a fixed sequence of steps
// that create an engine, execute textual SQL, bind parameters, use both
// transaction idioms, read rows, declare tables, and persist mapped
// objects through a session. Each step prints what it reads to the
// Env's writer.
package tour
