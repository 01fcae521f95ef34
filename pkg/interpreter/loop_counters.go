package interpreter

import (
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// LoopStackBinding is the reserved binding holding the frames of the times
// loops a stepped program is currently inside. The '@' keeps it out of
// reach of program symbols.
const LoopStackBinding = "@loops"

func loopStack(env *runtime.Environment) *runtime.LoopStackValue {
	if val, ok := env.Lookup(LoopStackBinding); ok {
		if stack, ok := val.(*runtime.LoopStackValue); ok {
			return stack
		}
	}
	stack := &runtime.LoopStackValue{}
	env.Set(LoopStackBinding, stack)
	return stack
}

// checkpointLoops records the loop frames held by env and returns a
// function restoring them. A failed step uses it so the frames stay in
// agreement with the unchanged location.
func checkpointLoops(env *runtime.Environment) func() {
	val, had := env.Lookup(LoopStackBinding)
	stack, isStack := val.(*runtime.LoopStackValue)
	var saved []runtime.LoopFrame
	if isStack {
		saved = append([]runtime.LoopFrame(nil), stack.Frames...)
	}
	return func() {
		switch {
		case !had:
			env.Delete(LoopStackBinding)
		case isStack:
			stack.Frames = saved
			env.Set(LoopStackBinding, stack)
		default:
			env.Set(LoopStackBinding, val)
		}
	}
}

// ClearLoopState drops any persisted loop frames from env. Callers do this
// when they rewind a location to the start.
func ClearLoopState(env *runtime.Environment) {
	env.Delete(LoopStackBinding)
}

// LoopFrames returns a copy of the frames persisted in env. Between steps
// the outermost active loop is last.
func LoopFrames(env *runtime.Environment) []runtime.LoopFrame {
	val, ok := env.Lookup(LoopStackBinding)
	if !ok {
		return nil
	}
	stack, ok := val.(*runtime.LoopStackValue)
	if !ok {
		return nil
	}
	return append([]runtime.LoopFrame(nil), stack.Frames...)
}
