// Package rotary turns rotary encoder input into RotaryEncoder state.
//
// Hardware edge callbacks run outside the pipeline. They drive a Decoder and
// push the resulting Sample into a bounded single-producer single-consumer
// Queue; the pipeline pops samples and feeds them to ReceiveFilter, which
// stamps step and button changes with event time. Callbacks never touch
// pipeline state directly.
//
// Direction convention: on a CLK transition, DT differing from CLK counts
// one step clockwise (+1) and DT equal to CLK counts one step
// counterclockwise (-1). Each step is 6 degrees.
package rotary
