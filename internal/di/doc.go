// Package di provides the service registry used to compose tokenvault
// extensions.
//
// A Collection is an ordered list of Descriptors. Each descriptor maps a
// service type to either a ready instance or a factory, together with a
// Lifetime. Extensions register themselves by adding descriptors, and the
// host inspects or builds the collection into a Provider once wiring is done.
//
// The registry is intentionally small:
//
//   - Add always appends; TryAdd skips when the service type is already
//     registered; TryAddEnumerable skips when the same service type and
//     identity are already registered. The last registration wins for
//     single-value resolution.
//   - Descriptors stay inspectable after registration, so wiring can be
//     asserted in tests without building a provider.
//   - Options of type T are assembled from defaults plus every Configure[T]
//     call, in registration order.
//
// Programmer errors during registration (a nil collection, descriptor or
// configurator) panic, in the same way net/http does for nil handlers. Resolution errors
// are returned.
package di
